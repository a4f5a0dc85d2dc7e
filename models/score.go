package models

import "time"

// Dice faces
const (
	MinDiceValue = 1
	MaxDiceValue = 6
)

// Score is a single recorded dice roll. Scores are append-only.
type Score struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	Value     int       `db:"value" json:"value"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// RollResult represents the outcome of a roll (returned to the user)
type RollResult struct {
	Result       int  `json:"result"`
	HighScore    int  `json:"highScore"`
	NewHighScore bool `json:"-"`
}

// IsValidDiceValue reports whether v is a face of a six-sided die
func IsValidDiceValue(v int) bool {
	return v >= MinDiceValue && v <= MaxDiceValue
}
