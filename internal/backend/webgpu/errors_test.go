package webgpu

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesSentinelByKind(t *testing.T) {
	err := newErr("read", KindSizeMismatch, fmt.Errorf("boom"))
	assert.True(t, errors.Is(err, ErrSizeMismatch))
	assert.False(t, errors.Is(err, ErrMapFailed))
}

func TestKindOf(t *testing.T) {
	err := newErr("dispatch", KindDispatchTooLarge, nil)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindDispatchTooLarge, kind)

	_, ok = KindOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("native failure")
	err := newErr("initialize", KindDriverUnavailable, cause)
	assert.ErrorIs(t, err, cause)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "invalid-state", KindInvalidState.String())
	assert.Equal(t, "worker-stopped", KindWorkerStopped.String())
}
