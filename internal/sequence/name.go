// Package sequence derives display labels from recorded sequence references.
//
// A reference is a path whose base name follows
// <color-or-gradient>_<name>_<optional-duration>_<optional-repeat>.<ext>,
// for example "sequences/gradient_cools_20_repeat.png".
package sequence

import (
	"path"
	"strings"
)

// DisplayName returns the human-readable name of a sequence reference: the
// text between the first and second underscore of the base name, or between
// the first underscore and the extension when there is no second underscore.
// References without an underscore are returned without their extension.
func DisplayName(ref string) string {
	base := path.Base(strings.ReplaceAll(ref, "\\", "/"))

	first := strings.IndexByte(base, '_')
	if first < 0 {
		return strings.TrimSuffix(base, path.Ext(base))
	}
	rest := base[first+1:]

	if second := strings.IndexByte(rest, '_'); second >= 0 {
		return rest[:second]
	}
	if dot := strings.LastIndexByte(rest, '.'); dot >= 0 {
		return rest[:dot]
	}
	return rest
}

// Info is a parsed sequence reference.
type Info struct {
	Ref      string
	Kind     string // color or gradient prefix
	Name     string
	Duration string // empty when not encoded
	Repeat   string // empty when not encoded
}

// Parse splits a reference into its naming components.
func Parse(ref string) Info {
	base := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))

	info := Info{Ref: ref, Name: DisplayName(ref)}
	parts := strings.Split(stem, "_")
	if len(parts) > 1 {
		info.Kind = parts[0]
	}
	if len(parts) > 2 {
		info.Duration = parts[2]
	}
	if len(parts) > 3 {
		info.Repeat = parts[3]
	}
	return info
}
