package adformat

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Doc is a read-only view over one loosely-typed scraper record. Lookups never
// fail: a missing or mistyped path yields an empty result.
type Doc struct {
	root gjson.Result
}

// Parse wraps raw JSON. Invalid JSON yields an empty Doc.
func Parse(raw []byte) Doc {
	if !gjson.ValidBytes(raw) {
		return Doc{}
	}
	return Doc{root: gjson.ParseBytes(raw)}
}

// Valid reports whether the document holds a JSON object.
func (d Doc) Valid() bool {
	return d.root.IsObject()
}

// Get returns the value at path.
func (d Doc) Get(path string) gjson.Result {
	if !d.root.Exists() {
		return gjson.Result{}
	}
	return d.root.Get(path)
}

// First returns the first value among paths that is present and non-empty.
func (d Doc) First(paths ...string) gjson.Result {
	return first(d.root, paths...)
}

// String returns the first non-empty value among paths as a trimmed string.
func (d Doc) String(paths ...string) string {
	r := d.First(paths...)
	if !r.Exists() {
		return ""
	}
	return strings.TrimSpace(r.String())
}

// PositiveInt returns the first value among paths that is a positive integer,
// or 0 when none is.
func (d Doc) PositiveInt(paths ...string) int {
	for _, p := range paths {
		r := d.Get(p)
		if !r.Exists() {
			continue
		}
		if n := r.Int(); n > 0 {
			return int(n)
		}
	}
	return 0
}

// Strings returns the string elements of the first non-empty array among paths.
func (d Doc) Strings(paths ...string) []string {
	r := d.First(paths...)
	if !r.IsArray() {
		if s := strings.TrimSpace(r.String()); s != "" && r.Type == gjson.String {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, el := range r.Array() {
		if s := strings.TrimSpace(el.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func first(root gjson.Result, paths ...string) gjson.Result {
	if !root.Exists() {
		return gjson.Result{}
	}
	for _, p := range paths {
		r := root.Get(p)
		if nonEmpty(r) {
			return r
		}
	}
	return gjson.Result{}
}

func nonEmpty(r gjson.Result) bool {
	if !r.Exists() {
		return false
	}
	switch r.Type {
	case gjson.Null:
		return false
	case gjson.String:
		return strings.TrimSpace(r.Str) != ""
	case gjson.JSON:
		if r.IsArray() {
			return len(r.Array()) > 0
		}
		return len(r.Map()) > 0
	default:
		return true
	}
}
