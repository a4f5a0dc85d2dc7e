package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"highroll/models"
	"highroll/service"

	log "github.com/sirupsen/logrus"
)

// Response bodies shown to players
const (
	msgUsernameRequired = "Username is required"
	msgInvalidUsername  = "Invalid username"
	msgUsernameTaken    = "Username already taken"
	msgUserNotFound     = "User not found"
	msgNotAuthorized    = "Not authorized"
	msgInvalidLimit     = "Invalid limit"
	msgServerError      = "Server error"
)

const defaultScoresLimit = 20

type credentials struct {
	Username string `json:"username"`
}

type rollResponse struct {
	Result    int `json:"result"`
	HighScore int `json:"highScore"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	username := usernameFromRequest(r)

	user, err := s.users.Register(r.Context(), username)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUsername):
			if strings.TrimSpace(username) == "" {
				writeError(w, http.StatusBadRequest, msgUsernameRequired)
			} else {
				writeError(w, http.StatusBadRequest, msgInvalidUsername)
			}
		case errors.Is(err, service.ErrUsernameTaken):
			writeError(w, http.StatusBadRequest, msgUsernameTaken)
		default:
			log.WithError(err).Error("Error registering user")
			writeError(w, http.StatusInternalServerError, msgServerError)
		}
		return
	}

	log.WithFields(log.Fields{
		"userID":   user.ID,
		"username": user.Username,
	}).Info("User registered")

	s.startSession(w, r, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Login(r.Context(), usernameFromRequest(r))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusBadRequest, msgUserNotFound)
			return
		}
		log.WithError(err).Error("Error logging in user")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	s.startSession(w, r, user)
}

func (s *Server) handleRollDice(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	result, err := s.game.RollDice(r.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			// User no longer exists
			s.endCurrentSession(r)
			s.clearSessionCookie(w)
			writeError(w, http.StatusForbidden, msgNotAuthorized)
			return
		}
		log.WithField("userID", session.UserID).WithError(err).Error("Error rolling dice")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	if result.HighScore != session.HighScore {
		if err := s.sessions.UpdateHighScore(r.Context(), session.ID, result.HighScore); err != nil {
			log.WithField("userID", session.UserID).WithError(err).Warn("Failed to update session high score")
		}
	}

	writeJSON(w, http.StatusOK, rollResponse{
		Result:    result.Result,
		HighScore: result.HighScore,
	})
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.gamePage())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.endCurrentSession(r)
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	stats, err := s.stats.GetUserStats(r.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, msgUserNotFound)
			return
		}
		log.WithField("userID", session.UserID).WithError(err).Error("Error loading user stats")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	session, _ := SessionFromContext(r.Context())

	limit, ok := parseLimit(r, defaultScoresLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidLimit)
		return
	}

	scores, err := s.stats.GetRecentScores(r.Context(), session.UserID, limit)
	if err != nil {
		log.WithField("userID", session.UserID).WithError(err).Error("Error loading scores")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, scores)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, s.leaderboardSize)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidLimit)
		return
	}

	entries, err := s.stats.GetScoreboard(r.Context(), limit)
	if err != nil {
		log.WithError(err).Error("Error loading leaderboard")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// startSession replaces any existing session with a new one for user and redirects to the game
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, user *models.User) {
	s.endCurrentSession(r)

	session, err := s.sessions.Start(r.Context(), user)
	if err != nil {
		log.WithField("userID", user.ID).WithError(err).Error("Error starting session")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	s.setSessionCookie(w, session)
	http.Redirect(w, r, "/game", http.StatusFound)
}

// usernameFromRequest reads username from a JSON or form body. A malformed body yields "".
func usernameFromRequest(r *http.Request) string {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body credentials
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<12)).Decode(&body); err != nil {
			return ""
		}
		return body.Username
	}
	return r.FormValue("username")
}

// parseLimit reads the limit query parameter, falling back to def when absent
func parseLimit(r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, false
	}
	if limit > service.MaxListLimit {
		limit = service.MaxListLimit
	}
	return limit, true
}

func notAuthorized(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusForbidden, msgNotAuthorized)
}

func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
