package models

import "time"

// Session is the server-side state behind a session cookie
type Session struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	HighScore int       `db:"high_score"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// IsExpired reports whether the session is no longer valid at the given time
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
