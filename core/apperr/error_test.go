package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAndIs(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(KindStore, cause, "checkpoint failed")
	assert.True(t, Is(e, KindStore))
	assert.False(t, Is(e, KindValidation))
	assert.ErrorIs(t, e, cause)
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestKindOfTyped(t *testing.T) {
	e := New(KindNotFound, "node %s missing", "abc")
	assert.Equal(t, KindNotFound, KindOf(e))
	assert.Contains(t, e.Error(), "abc")
}
