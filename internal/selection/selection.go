package selection

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"plantmerge/internal/config"
)

// Rule is the filter applied to one dataset's filenames.
type Rule struct {
	Extensions []string // case-sensitive suffixes
	Keyword    string   // exact substring, not a glob
	TimeFilter bool
	KeepHours  []int
	Margin     int
	HourField  int // zero-based underscore-delimited field
}

// RuleFor builds the rule for a dataset from the selection config.
func RuleFor(sel config.Selection, ds config.Dataset) Rule {
	return Rule{
		Extensions: append([]string(nil), sel.Extensions...),
		Keyword:    sel.RequiredKeyword,
		TimeFilter: ds.TimeFilter,
		KeepHours:  append([]int(nil), sel.KeepHours...),
		Margin:     sel.HourMargin,
		HourField:  sel.HourField,
	}
}

// ParseHour extracts the hour stored at the given underscore-delimited field.
// ok is false when the name has too few fields or the field is not an integer.
func ParseHour(name string, field int) (hour int, ok bool) {
	if field < 0 {
		return 0, false
	}
	parts := strings.Split(name, "_")
	if field >= len(parts) {
		return 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[field]))
	if err != nil {
		return 0, false
	}
	return h, true
}

// InWindow reports whether hour lies within margin of any target, inclusive.
func InWindow(hour int, targets []int, margin int) bool {
	for _, t := range targets {
		if t-margin <= hour && hour <= t+margin {
			return true
		}
	}
	return false
}

// Match reports whether name satisfies every clause of the rule.
func (r Rule) Match(name string) bool {
	if !r.hasExtension(name) {
		return false
	}
	if !containsKeyword(name, r.Keyword) {
		return false
	}
	if r.TimeFilter {
		hour, ok := ParseHour(name, r.HourField)
		if !ok {
			return false
		}
		return InWindow(hour, r.KeepHours, r.Margin)
	}
	return true
}

// Select returns the names that match, preserving input order. Callers sort
// the listing first; the sorted order is the temporal order.
func (r Rule) Select(names []string) []string {
	var out []string
	for _, name := range names {
		if r.Match(name) {
			out = append(out, name)
		}
	}
	return out
}

func (r Rule) hasExtension(name string) bool {
	for _, ext := range r.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// containsKeyword compares in NFC so decomposed names (as written by macOS
// filesystems) match a composed keyword.
func containsKeyword(name, keyword string) bool {
	if keyword == "" {
		return true
	}
	if strings.Contains(name, keyword) {
		return true
	}
	return strings.Contains(norm.NFC.String(name), norm.NFC.String(keyword))
}
