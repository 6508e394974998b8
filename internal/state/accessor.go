package state

import (
	"fmt"
	"math"
	"time"
)

// Reader resolves dot paths to values. *Store implements it.
type Reader interface {
	Get(path string) (any, bool)
}

// Accessor reads values with type checks and the numeric coercions a tree
// decoded from JSON or YAML needs. A path holding nil reads as the zero
// value without error.
type Accessor struct {
	r Reader
}

// NewAccessor wraps r.
func NewAccessor(r Reader) *Accessor {
	return &Accessor{r: r}
}

// Get returns the raw value at path, or ErrPathNotFound.
func (a *Accessor) Get(path string) (any, error) {
	v, ok := a.r.Get(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return v, nil
}

func (a *Accessor) GetString(path string) (string, error) {
	return read(a, path, "string", asType[string])
}

// GetInt accepts any integer type and whole floats.
func (a *Accessor) GetInt(path string) (int, error) {
	return read(a, path, "integer", asInt)
}

func (a *Accessor) GetFloat(path string) (float64, error) {
	return read(a, path, "number", asFloat)
}

func (a *Accessor) GetBool(path string) (bool, error) {
	return read(a, path, "boolean", asType[bool])
}

// GetDuration accepts a time.Duration, a string such as "500ms", or a
// number of milliseconds.
func (a *Accessor) GetDuration(path string) (time.Duration, error) {
	v, err := a.Get(path)
	if err != nil || v == nil {
		return 0, err
	}
	if s, ok := v.(string); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration at %s: %w", path, err)
		}
		return d, nil
	}
	return read(a, path, "duration", asMillis)
}

// GetMap returns the stored mapping, not a copy.
func (a *Accessor) GetMap(path string) (map[string]any, error) {
	return read(a, path, "object", asType[map[string]any])
}

func (a *Accessor) GetStringSlice(path string) ([]string, error) {
	return read(a, path, "string array", asStrings)
}

func read[T any](a *Accessor, path, expected string, conv func(any) (T, bool)) (T, error) {
	var zero T
	v, err := a.Get(path)
	if err != nil || v == nil {
		return zero, err
	}
	out, ok := conv(v)
	if !ok {
		return zero, &TypeError{Path: path, Expected: expected, Actual: fmt.Sprintf("%T", v)}
	}
	return out, nil
}

func asType[T any](v any) (T, bool) {
	t, ok := v.(T)
	return t, ok
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	i, ok := asInt(v)
	return float64(i), ok
}

func asMillis(v any) (time.Duration, bool) {
	if d, ok := v.(time.Duration); ok {
		return d, true
	}
	ms, ok := asFloat(v)
	return time.Duration(ms * float64(time.Millisecond)), ok
}

func asStrings(v any) ([]string, bool) {
	switch s := v.(type) {
	case []string:
		return s, true
	case []any:
		out := make([]string, len(s))
		for i, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = str
		}
		return out, true
	}
	return nil, false
}
