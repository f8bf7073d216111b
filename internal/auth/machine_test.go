package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMachine_BeginWhileSubmitting(t *testing.T) {
	m := NewMachine(StateAnonymous)

	assert.NoError(t, m.Begin())
	assert.ErrorIs(t, m.Begin(), ErrSubmitting)

	m.Succeed()
	assert.Equal(t, StateAuthenticated, m.State())
	assert.NoError(t, m.Begin(), "re-login from authenticated is allowed")
}

func TestMachine_FailKeepsError(t *testing.T) {
	m := NewMachine(StateAnonymous)
	boom := errors.New("boom")

	_ = m.Begin()
	m.Fail(boom)

	assert.Equal(t, StateAnonymous, m.State())
	assert.ErrorIs(t, m.Err(), boom)

	_ = m.Begin()
	assert.NoError(t, m.Err(), "a new submission forgets the old error")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "submitting", StateSubmitting.String())
	assert.Equal(t, "unknown", State(42).String())
}
