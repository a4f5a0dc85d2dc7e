package models

// ScoreStats aggregates a user's recorded rolls
type ScoreStats struct {
	TotalRolls   int64
	Average      float64
	Distribution map[int]int64 // face -> number of times rolled
}

// ScoreboardEntry represents a single entry in the leaderboard
type ScoreboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     int64  `json:"userId"`
	Username   string `json:"username"`
	HighScore  int    `json:"highScore"`
	TotalRolls int64  `json:"totalRolls"`
}

// UserStats represents detailed statistics for a user
type UserStats struct {
	User         *User         `json:"user"`
	TotalRolls   int64         `json:"totalRolls"`
	Average      float64       `json:"average"`
	Distribution map[int]int64 `json:"distribution"`
	RecentScores []*Score      `json:"recentScores"`
}
