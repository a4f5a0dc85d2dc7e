package testutil

import (
	"fmt"
	"strings"
	"time"

	"highroll/models"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// RandomUsername returns a valid username that is unlikely to collide
func RandomUsername() string {
	base := strings.Join(strings.Fields(gofakeit.Username()), "")
	name := fmt.Sprintf("%s_%d", base, gofakeit.Number(1000, 9999))
	if len(name) > 32 {
		name = name[len(name)-32:]
	}
	return name
}

// CreateTestSession builds a session for the user expiring after ttl
func CreateTestSession(user *models.User, ttl time.Duration) *models.Session {
	now := time.Now().UTC()
	return &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		HighScore: user.HighScore,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
