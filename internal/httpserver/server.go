package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Server wraps the HTTP server setup.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	db         *pgxpool.Pool
	feed       *Hub
}

// New builds a Server with every API route.
func New(addr string, logger *log.Logger, db *pgxpool.Pool, deps Deps) (*Server, error) {
	router, err := buildRouter(logger, db, deps)
	if err != nil {
		return nil, err
	}

	// No WriteTimeout: the order feed holds its connection open.
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	return &Server{
		httpServer: httpSrv,
		logger:     logger,
		db:         db,
		feed:       deps.Feed,
	}, nil
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and drops feed subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.feed != nil {
		if n := s.feed.Subscribers(); n > 0 {
			s.logger.Printf("closing %d order feed subscribers", n)
		}
		s.feed.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readyHandler reports whether the database answers. The feed subscriber
// count is included for the admin dashboard.
func readyHandler(db *pgxpool.Pool, feed *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not reachable"})
			return
		}
		body := gin.H{"status": "ready"}
		if feed != nil {
			body["feedSubscribers"] = feed.Subscribers()
		}
		c.JSON(http.StatusOK, body)
	}
}
