package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_IsExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	session := &Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, session.IsExpired(now))
	assert.True(t, session.IsExpired(now.Add(time.Minute)))
	assert.True(t, session.IsExpired(now.Add(time.Hour)))
}

func TestIsValidDiceValue(t *testing.T) {
	for v := MinDiceValue; v <= MaxDiceValue; v++ {
		assert.True(t, IsValidDiceValue(v), "face %d", v)
	}
	assert.False(t, IsValidDiceValue(0))
	assert.False(t, IsValidDiceValue(7))
}
