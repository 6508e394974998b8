package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListenerError(t *testing.T) {
	base := errors.New("bad payload")
	err := &ListenerError{Event: "state:change", SubscriptionID: "sub-1", Err: base}

	assert.Equal(t, `listener sub-1 for "state:change": bad payload`, err.Error())
	assert.ErrorIs(t, err, base)
}

func TestPanicError(t *testing.T) {
	err := &PanicError{Event: "tick", SubscriptionID: "sub-2", Value: "boom"}

	assert.Contains(t, err.Error(), "panicked: boom")
	assert.ErrorIs(t, err, ErrListenerPanic)
	assert.NotErrorIs(t, err, errors.New("listener panicked"))
}
