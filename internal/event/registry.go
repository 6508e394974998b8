package event

import (
	"cmp"
	"slices"
	"sort"
	"sync"

	"github.com/QEbellavita/QuantaraEI-sub001/internal/event/topic"
)

// Registry holds listener registrations keyed by event name or pattern.
// Each per-key list is kept in delivery order: descending priority, then
// registration order. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	exact    map[string][]*subscription
	patterns map[topic.Topic][]*subscription
	byID     map[string]*subscription
	matcher  *topic.Matcher
	seq      uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		exact:    make(map[string][]*subscription),
		patterns: make(map[topic.Topic][]*subscription),
		byID:     make(map[string]*subscription),
		matcher:  topic.NewMatcher(),
	}
}

// Add registers a subscription.
func (r *Registry) Add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	sub.seq = r.seq
	sub.registry = r

	if sub.pattern {
		r.patterns[sub.name] = insertByPriority(r.patterns[sub.name], sub)
		r.matcher.Add(sub.name)
	} else {
		key := string(sub.name)
		r.exact[key] = insertByPriority(r.exact[key], sub)
	}
	r.byID[sub.id] = sub
}

// insertByPriority places sub after every entry with priority >= its own,
// which keeps equal priorities in registration order.
func insertByPriority(list []*subscription, sub *subscription) []*subscription {
	i := sort.Search(len(list), func(i int) bool {
		return list[i].priority < sub.priority
	})
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = sub
	return list
}

// Remove removes a subscription by ID and marks it cancelled.
// It returns false if the ID is unknown.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(id)
}

// RemoveFrom removes a subscription only if it is registered under name.
func (r *Registry) RemoveFrom(name, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok || string(sub.name) != name {
		return false
	}
	return r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) bool {
	sub, ok := r.byID[id]
	if !ok {
		return false
	}
	sub.cancel()
	delete(r.byID, id)

	if sub.pattern {
		list := removeByID(r.patterns[sub.name], id)
		if len(list) == 0 {
			delete(r.patterns, sub.name)
			r.matcher.Remove(sub.name)
		} else {
			r.patterns[sub.name] = list
		}
		return true
	}

	key := string(sub.name)
	list := removeByID(r.exact[key], id)
	if len(list) == 0 {
		delete(r.exact, key)
	} else {
		r.exact[key] = list
	}
	return true
}

func removeByID(list []*subscription, id string) []*subscription {
	for i, s := range list {
		if s.id == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Get returns a subscription by ID.
func (r *Registry) Get(id string) (Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return sub, true
}

// Match returns a snapshot of every subscription that should see an event
// named name, in delivery order.
func (r *Registry) Match(name string) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exact := r.exact[name]
	var matched []topic.Topic
	if len(r.patterns) > 0 {
		matched = r.matcher.Match(topic.Topic(name))
	}

	if len(matched) == 0 {
		if len(exact) == 0 {
			return nil
		}
		return slices.Clone(exact)
	}

	all := slices.Clone(exact)
	for _, p := range matched {
		all = append(all, r.patterns[p]...)
	}
	slices.SortStableFunc(all, func(a, b *subscription) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return all
}

// Count returns the total number of registrations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

// CountByName returns the number of registrations under an exact name or pattern.
func (r *Registry) CountByName(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.exact[name]) + len(r.patterns[topic.Topic(name)])
}

// Names returns the sorted names and patterns that have registrations.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.exact)+len(r.patterns))
	for n := range r.exact {
		names = append(names, n)
	}
	for p := range r.patterns {
		names = append(names, string(p))
	}
	slices.Sort(names)
	return names
}

// Clear removes all registrations and cancels them.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range r.byID {
		sub.cancel()
	}
	r.exact = make(map[string][]*subscription)
	r.patterns = make(map[topic.Topic][]*subscription)
	r.byID = make(map[string]*subscription)
	r.matcher.Clear()
}
