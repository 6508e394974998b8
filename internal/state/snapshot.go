package state

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/tidwall/gjson"
)

// Snapshot returns a deep copy of the tree.
func (s *Store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return deepCopy(s.root).(map[string]any)
}

// Load deep-merges tree into the store and emits EventLoaded. No per-path
// change events are emitted.
func (s *Store) Load(ctx context.Context, tree map[string]any) {
	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	s.mu.Lock()
	mergeInto(s.root, tree)
	s.version++
	s.mu.Unlock()

	s.bus.Emit(ctx, EventLoaded, Loaded{Keys: keys, Time: time.Now()})
}

// Export encodes the tree as JSON.
func (s *Store) Export() ([]byte, error) {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotSerializable, err)
	}
	return data, nil
}

// Query evaluates a gjson path expression against the exported tree,
// e.g. "user.name" or "sessions.#(active==true)#.id".
func (s *Store) Query(expr string) (gjson.Result, error) {
	data, err := s.Export()
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.GetBytes(data, expr), nil
}
