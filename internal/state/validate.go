package state

import (
	"context"
	"slices"

	"go.uber.org/multierr"
)

// Validator checks a proposed value for a path. current is the value stored
// when validation runs.
type Validator func(value, current any) error

// AddValidator registers v for path. Validators run in Update only.
func (s *Store) AddValidator(path string, v Validator) {
	if v == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.validators[path] = append(s.validators[path], v)
}

// maxUpdateAttempts bounds how often Update revalidates after a concurrent
// write.
const maxUpdateAttempts = 8

// Update validates every change first and applies none of them if any
// validator fails; the returned error then combines every failure as
// *ValidationError values. Otherwise the changes are applied together in
// sorted path order, each emitting the usual change events, followed by one
// EventBatch.
//
// Validators run without the store lock and may read the store. If another
// write lands between validation and apply, Update validates again, and
// gives up with ErrConflict after maxUpdateAttempts.
func (s *Store) Update(ctx context.Context, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}

	paths := make([]string, 0, len(changes))
	for p := range changes {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	for range maxUpdateAttempts {
		version, err := s.validate(paths, changes)
		if err != nil {
			return err
		}
		applied, ok := s.apply(paths, changes, version)
		if !ok {
			continue
		}
		for _, c := range applied {
			s.changed(ctx, c)
		}
		s.bus.Emit(ctx, EventBatch, Batch{Paths: paths})
		return nil
	}
	return ErrConflict
}

// apply writes every change in one critical section, provided the store
// has not changed since validation saw version.
func (s *Store) apply(paths []string, changes map[string]any, version uint64) ([]Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version != version {
		return nil, false
	}
	applied := make([]Change, 0, len(paths))
	for _, p := range paths {
		old := s.assignLocked(p, changes[p])
		applied = append(applied, Change{Path: p, OldValue: old, NewValue: changes[p]})
	}
	return applied, true
}

func (s *Store) validate(paths []string, changes map[string]any) (uint64, error) {
	s.mu.RLock()
	version := s.version
	type check struct {
		path       string
		validators []Validator
		current    any
	}
	var checks []check
	for _, p := range paths {
		vs := s.validators[p]
		if len(vs) == 0 {
			continue
		}
		cur, _ := lookup(s.root, splitPath(p))
		checks = append(checks, check{path: p, validators: slices.Clone(vs), current: cur})
	}
	s.mu.RUnlock()

	var err error
	for _, c := range checks {
		for _, v := range c.validators {
			if verr := v(changes[c.path], c.current); verr != nil {
				err = multierr.Append(err, &ValidationError{Path: c.path, Err: verr})
			}
		}
	}
	return version, err
}
