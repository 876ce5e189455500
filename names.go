package revs

import (
	"strconv"
	"strings"
)

// Ext is the filename extension of revision entries.
// Entries without it are ignored.
const Ext = ".json"

// baseline stands in for the revisions of an object that has none.
const baseline = "0-a" + Ext

// RevisionName produces the entry name for a revision: <rev>-<uid>.json.
func RevisionName(rev int64, uid string) string {
	return strconv.FormatInt(rev, 10) + "-" + uid + Ext
}

// ParseRevision extracts the revision number from an entry name.
// The number is the leading integer of the text before the first "-",
// after optional whitespace and sign.
// Trailing junk is ignored.
// A name with no leading integer yields 1.
func ParseRevision(name string) int64 {
	part := name
	if i := strings.IndexByte(name, '-'); i >= 0 {
		part = name[:i]
	}
	n, ok := leadingInt(part)
	if !ok {
		return 1
	}
	return n
}

func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && '0' <= s[end] && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func revisionNames(names []string) []string {
	var out []string
	for _, name := range names {
		if strings.HasSuffix(name, Ext) && !strings.HasPrefix(name, ".") {
			out = append(out, name)
		}
	}
	return out
}
