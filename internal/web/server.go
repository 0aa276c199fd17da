package web

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/raine/reseller-assistant/internal/assistant"
	"github.com/raine/reseller-assistant/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	sessionCookie   = "sid"
	sessionKey      = "sid"
	sessionMaxAge   = 30 * 24 * 60 * 60
	shutdownTimeout = 30 * time.Second
)

//go:embed static/index.html
var indexHTML []byte

// DraftStore is the draft history used by the /api/drafts routes.
type DraftStore interface {
	GetDraft(id string) (*storage.Draft, error)
	ListDrafts(owner string, limit int) ([]storage.Draft, error)
	DeleteDraft(id string) error
}

// Options configures the Server.
type Options struct {
	MaxUploadBytes  int64
	DefaultLocation string
}

// Server is the browser front-end and its JSON API.
type Server struct {
	svc      *assistant.Service
	sessions *assistant.Registry
	drafts   DraftStore
	opts     Options
	engine   *gin.Engine
}

// NewServer creates a Server and registers its routes.
func NewServer(svc *assistant.Service, sessions *assistant.Registry, drafts DraftStore, opts Options) *Server {
	s := &Server{
		svc:      svc,
		sessions: sessions,
		drafts:   drafts,
		opts:     opts,
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/", s.index)
	r.GET("/healthz", s.health)

	api := r.Group("/api", sessionID())
	{
		api.POST("/analyze", s.analyze)

		session := api.Group("/session")
		{
			session.GET("", s.getSession)
			session.POST("/reset", s.resetSession)
		}

		drafts := api.Group("/drafts")
		{
			drafts.GET("", s.listDrafts)
			drafts.GET("/:id", s.getDraft)
			drafts.DELETE("/:id", s.deleteDraft)
		}
	}
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

// sessionID assigns every browser a random session cookie.
func sessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(sessionCookie)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(sessionCookie, sid, sessionMaxAge, "/", "", false, true)
		}
		c.Set(sessionKey, sid)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}
