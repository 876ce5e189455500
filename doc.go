// Package revs is a revisioned object store.
//
// An object is a JSON record with a string id.
// Each time an object is stored,
// a new immutable revision of it is written beside the old ones,
// in a directory named by the id,
// under an entry named <rev>-<uid>.json.
// The rev is one more than the latest existing revision number.
// The uid is a fresh random UUID,
// so two writers storing the same object at the same moment
// can never overwrite each other,
// even if they pick the same rev.
//
// There are no in-place updates,
// and no locks unless Config.Exclusive asks for them.
// The latest revision is simply the last entry
// when the directory is sorted in natural order
// (digit runs compare numerically, letters compare without regard to case).
// When two writers race to the same rev,
// the one whose uid sorts last wins.
// That choice is deterministic but says nothing about which write happened first.
//
// Old revisions accumulate until Store.Clean is called,
// which deletes all but the latest.
//
// The directories and entries live in a Backend.
// The store/file subpackage keeps them on disk,
// store/mem keeps them in memory,
// and other subpackages keep them in afero filesystems, SQL databases and Google Cloud Storage.
//
// The companion tags subpackage maps labels to object ids
// using one directory per tag
// and one empty-ish marker file per member.
package revs
