package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunner_Outcomes(t *testing.T) {
	boom := errors.New("boom")
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		fn   func(context.Context) error
		want Outcome
		err  error
	}{
		{"delivered", context.Background(), func(context.Context) error { return nil }, Delivered, nil},
		{"failed", context.Background(), func(context.Context) error { return boom }, Failed, boom},
		{"panicked", context.Background(), func(context.Context) error { panic("kaboom") }, Panicked, nil},
		{"skipped", cancelled, func(context.Context) error { panic("must not run") }, Skipped, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(0)
			rep := r.Run(tt.ctx, tt.fn)

			assert.Equal(t, tt.want, rep.Outcome)
			assert.Equal(t, tt.name, rep.Outcome.String())
			if tt.err != nil {
				assert.ErrorIs(t, rep.Err, tt.err)
			} else {
				assert.NoError(t, rep.Err)
			}
			assert.Equal(t, uint64(1), r.Count(tt.want))
		})
	}
}

func TestRunner_PanicReport(t *testing.T) {
	rep := NewRunner(0).Run(context.Background(), func(context.Context) error {
		panic("kaboom")
	})

	assert.Equal(t, "kaboom", rep.Panic)
	assert.NotEmpty(t, rep.Stack)
}

func TestRunner_Timeout(t *testing.T) {
	r := NewRunner(20 * time.Millisecond)
	rep := r.Run(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	assert.Equal(t, Failed, rep.Outcome)
	assert.ErrorIs(t, rep.Err, context.DeadlineExceeded)
}

func TestRunner_Mean(t *testing.T) {
	r := NewRunner(0)
	assert.Zero(t, r.Mean())

	for range 3 {
		r.Run(context.Background(), func(context.Context) error {
			time.Sleep(time.Millisecond)
			return nil
		})
	}
	assert.GreaterOrEqual(t, r.Mean(), time.Millisecond)
	assert.Zero(t, r.Count(Outcome(42)))
}
