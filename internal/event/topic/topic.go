package topic

import "strings"

// Topic is an event name or a pattern over event names.
type Topic string

const (
	// WildcardSingle stands for exactly one segment.
	WildcardSingle = "*"
	// WildcardMulti stands for any number of segments, including none.
	WildcardMulti = "**"
)

func (t Topic) String() string { return string(t) }

// Segments splits t on "." and ":", dropping empty segments.
func (t Topic) Segments() []string { return Split(string(t)) }

// IsWildcard reports whether t contains a wildcard.
func (t Topic) IsWildcard() bool {
	return strings.Contains(string(t), WildcardSingle)
}

// Matches reports whether the name t is matched by pattern.
func (t Topic) Matches(pattern Topic) bool {
	return match(t.Segments(), pattern.Segments())
}

// match is glob matching over segments. On a mismatch it backtracks to the
// last "**" and lets it absorb one more segment.
func match(name, pattern []string) bool {
	n, p := 0, 0
	multi, resume := -1, 0

	for n < len(name) {
		switch {
		case p < len(pattern) && pattern[p] == WildcardMulti:
			multi, resume = p, n
			p++
		case p < len(pattern) && (pattern[p] == WildcardSingle || pattern[p] == name[n]):
			n++
			p++
		case multi >= 0:
			resume++
			n, p = resume, multi+1
		default:
			return false
		}
	}

	for p < len(pattern) && pattern[p] == WildcardMulti {
		p++
	}
	return p == len(pattern)
}

// Split splits an event name into segments.
func Split(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == ':' })
}
