package topic

import (
	"slices"
	"sync"
)

// Matcher indexes patterns in a segment trie so that one event name can be
// matched against all of them in a single walk. It is safe for concurrent
// use.
type Matcher struct {
	mu    sync.RWMutex
	root  *node
	count int
}

type node struct {
	next map[string]*node
	// multi marks a node entered through a "**" edge; it may consume any
	// number of further segments without moving.
	multi   bool
	pattern Topic
	set     bool
}

func (n *node) child(seg string) *node {
	if n.next == nil {
		return nil
	}
	return n.next[seg]
}

// NewMatcher returns an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{root: &node{}}
}

// Add indexes pattern. Adding a pattern twice, or an empty one, does nothing.
func (m *Matcher) Add(pattern Topic) {
	segs := pattern.Segments()
	if len(segs) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.root
	for _, seg := range segs {
		c := n.child(seg)
		if c == nil {
			if n.next == nil {
				n.next = make(map[string]*node)
			}
			c = &node{multi: seg == WildcardMulti}
			n.next[seg] = c
		}
		n = c
	}
	if !n.set {
		n.set, n.pattern = true, pattern
		m.count++
	}
}

// Remove drops pattern and prunes branches left empty.
func (m *Matcher) Remove(pattern Topic) {
	segs := pattern.Segments()
	if len(segs) == 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	path := make([]*node, 0, len(segs)+1)
	n := m.root
	path = append(path, n)
	for _, seg := range segs {
		if n = n.child(seg); n == nil {
			return
		}
		path = append(path, n)
	}
	if !n.set {
		return
	}
	n.set, n.pattern = false, ""
	m.count--

	for i := len(segs); i > 0; i-- {
		leaf := path[i]
		if leaf.set || len(leaf.next) > 0 {
			break
		}
		delete(path[i-1].next, segs[i-1])
	}
}

// Has reports whether pattern is indexed.
func (m *Matcher) Has(pattern Topic) bool {
	segs := pattern.Segments()
	if len(segs) == 0 {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.root
	for _, seg := range segs {
		if n = n.child(seg); n == nil {
			return false
		}
	}
	return n.set
}

// Match returns the indexed patterns matching name, sorted, each once.
func (m *Matcher) Match(name Topic) []Topic {
	segs := name.Segments()
	if len(segs) == 0 {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	current := expand(map[*node]struct{}{m.root: {}})
	for _, seg := range segs {
		next := make(map[*node]struct{})
		for n := range current {
			if n.multi {
				next[n] = struct{}{}
			}
			if c := n.child(seg); c != nil {
				next[c] = struct{}{}
			}
			if c := n.child(WildcardSingle); c != nil {
				next[c] = struct{}{}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = expand(next)
	}

	var out []Topic
	for n := range current {
		if n.set {
			out = append(out, n.pattern)
		}
	}
	slices.Sort(out)
	return out
}

// expand adds every node reachable through "**" edges without consuming a
// segment.
func expand(set map[*node]struct{}) map[*node]struct{} {
	stack := make([]*node, 0, len(set))
	for n := range set {
		stack = append(stack, n)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c := n.child(WildcardMulti); c != nil {
			if _, ok := set[c]; !ok {
				set[c] = struct{}{}
				stack = append(stack, c)
			}
		}
	}
	return set
}

// Count returns the number of indexed patterns.
func (m *Matcher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// Clear drops every pattern.
func (m *Matcher) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.root = &node{}
	m.count = 0
}
