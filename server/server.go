package server

import (
	"net/http"
	"path/filepath"
	"time"

	"highroll/config"
	"highroll/infrastructure/observability"
	"highroll/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// Services bundles the application services the handlers call
type Services struct {
	Users    service.UserService
	Game     service.GameService
	Sessions service.SessionService
	Stats    service.StatsService
}

// Server serves the game over HTTP
type Server struct {
	users    service.UserService
	game     service.GameService
	sessions service.SessionService
	stats    service.StatsService

	metrics *observability.Metrics
	feed    *Feed

	staticDir       string
	cookieName      string
	sessionTTL      time.Duration
	secureCookies   bool
	leaderboardSize int
	allowedOrigins  []string
	trustProxy      bool
	rateLimit       rate.Limit
	rateBurst       int
}

// New creates a server. metrics and feed may be nil to disable those routes.
func New(cfg *config.Config, services Services, metrics *observability.Metrics, feed *Feed) *Server {
	return &Server{
		users:           services.Users,
		game:            services.Game,
		sessions:        services.Sessions,
		stats:           services.Stats,
		metrics:         metrics,
		feed:            feed,
		staticDir:       cfg.StaticDir,
		cookieName:      cfg.SessionCookieName,
		sessionTTL:      cfg.SessionTTL,
		secureCookies:   cfg.IsProduction(),
		leaderboardSize: cfg.LeaderboardSize,
		allowedOrigins:  cfg.AllowedOrigins,
		trustProxy:      cfg.TrustProxyHeaders,
		rateLimit:       rate.Limit(cfg.RateLimitPerSecond),
		rateBurst:       cfg.RateLimitBurst,
	}
}

// Router builds the chi router with all middleware and routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	// Forwarded headers are client-controlled unless a proxy rewrites them
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(MetricsMiddleware(s.metrics))
	}
	r.Use(CORSMiddleware(s.allowedOrigins))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if s.rateLimit > 0 {
			r.Use(RateLimitMiddleware(NewIPRateLimiter(s.rateLimit, s.rateBurst)))
		}

		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)
		r.Get("/leaderboard", s.handleLeaderboard)
		if s.feed != nil {
			r.Get("/feed", s.feed.ServeHTTP)
		}

		r.With(s.requireSession(notAuthorized)).Get("/roll-dice", s.handleRollDice)
		r.With(s.requireSession(notAuthorized)).Get("/me", s.handleMe)
		r.With(s.requireSession(notAuthorized)).Get("/scores", s.handleScores)
		r.With(s.requireSession(redirectTo("/"))).Get("/game", s.handleGame)
	})

	r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))

	return r
}

func (s *Server) gamePage() string {
	return filepath.Join(s.staticDir, "game.html")
}
