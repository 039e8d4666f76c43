package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypingIndicator(t *testing.T) {
	var ind TypingIndicator
	assert.False(t, ind.Active())
	assert.False(t, ind.Stop(), "stop before start")

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, ind.Start(at))
	assert.False(t, ind.Start(at.Add(time.Second)), "second start is a no-op")
	assert.True(t, ind.Active())
	assert.Equal(t, at, ind.Since())

	assert.True(t, ind.Stop())
	assert.False(t, ind.Stop(), "stop counts once")
	assert.False(t, ind.Active())
	assert.True(t, ind.Since().IsZero())
}

func TestSendStateString(t *testing.T) {
	assert.Equal(t, "idle", SendIdle.String())
	assert.Equal(t, "optimistic_sent", SendOptimistic.String())
	assert.Equal(t, "reconciled", SendReconciled.String())
	assert.Equal(t, "failed", SendFailed.String())
	assert.Equal(t, "unknown", SendState(42).String())
}
