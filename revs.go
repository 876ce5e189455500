package revs

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Record is a stored object:
// an arbitrary JSON object carrying a string "id".
// Records returned by a Store also carry "rev" and "uid".
type Record map[string]interface{}

// Field names with meaning to the store.
const (
	IDField  = "id"
	RevField = "rev"
	UIDField = "uid"
)

// ID returns the record's id, or "" if it has none.
func (r Record) ID() string {
	s, _ := r[IDField].(string)
	return s
}

// UID returns the record's uid, or "" if it has none.
func (r Record) UID() string {
	s, _ := r[UIDField].(string)
	return s
}

// Rev returns the record's revision number.
// The boolean is false if the record has no "rev" field.
func (r Record) Rev() (int64, bool, error) {
	v, ok := r[RevField]
	if !ok {
		return 0, false, nil
	}
	n, err := toInt(v)
	return n, true, err
}

func (r Record) clone() Record {
	out := make(Record, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// toInt converts a decoded or caller-built JSON number to an int64.
// A JSON null counts as zero.
func toInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > 1<<63-1 {
			return 0, errors.Wrapf(ErrInvalidArgument, "rev %d out of range", n)
		}
		return int64(n), nil
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, errors.Wrapf(ErrInvalidArgument, "rev %q is not a number", n)
		}
		return floatToInt(f)
	}
	return 0, errors.Wrapf(ErrInvalidArgument, "rev has type %T, want a number", v)
}

func floatToInt(f float64) (int64, error) {
	if f != float64(int64(f)) {
		return 0, errors.Wrapf(ErrInvalidArgument, "rev %v is not an integer", f)
	}
	return int64(f), nil
}

func revNumber(n int64) json.Number {
	return json.Number(strconv.FormatInt(n, 10))
}

// ValidKey tells whether s may be used as an object id or tag name.
// Keys name directories,
// so they may not be empty, "." or "..",
// nor contain path separators or NUL.
// A leading dot is reserved for temporary and lock files.
func ValidKey(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	if strings.HasPrefix(s, ".") {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}

// CheckKey returns an error wrapping ErrInvalidArgument if !ValidKey(s).
func CheckKey(s string) error {
	if s == "" {
		return errors.Wrap(ErrInvalidArgument, "empty id")
	}
	if !ValidKey(s) {
		return errors.Wrapf(ErrInvalidArgument, "invalid id %q", s)
	}
	return nil
}

var (
	// ErrNotFound is the error returned
	// when reading a non-existent object or revision.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument is the error returned
	// when a required identifier or field is missing or malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrExists is the error a Backend returns
	// when asked to create an entry that already exists.
	ErrExists = errors.New("already exists")
)
