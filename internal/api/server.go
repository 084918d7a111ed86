// Package api serves a small local HTTP control surface: start and stop
// clicking, edit settings, manage profiles and logs, and inject hotkeys.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"

	"github.com/tturner/smiteclick/internal/clicker"
	"github.com/tturner/smiteclick/internal/config"
	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/logging"
	"github.com/tturner/smiteclick/internal/orch"
	"github.com/tturner/smiteclick/internal/settings"
	"github.com/tturner/smiteclick/internal/store"
)

// Controller is the session control the API drives.
type Controller interface {
	Start() bool
	Stop() bool
	Toggle()
	Status() orch.Status
}

// Deps are the components behind the routes. Windows and Keys are optional;
// their routes answer 501 when nil.
type Deps struct {
	Control  Controller
	Settings *settings.Store
	Store    *store.Store
	Windows  clicker.WindowFinder
	Keys     *hotkey.ChanSource
}

// Server owns the router and the limiter table.
type Server struct {
	deps     Deps
	cfg      config.APIConfig
	log      *logging.Logger
	limiters *limiters
	router   *gin.Engine
}

const limiterTTL = 10 * time.Minute

// NewServer builds the router. Gin's global mode is left to the caller.
func NewServer(deps Deps, cfg config.APIConfig, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{
		deps: deps,
		cfg:  cfg,
		log:  log,
	}
	if cfg.RateLimitRPS > 0 {
		s.limiters = newLimiters(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	s.router = s.routes()
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(accessLogMiddleware(s.log))
	r.Use(ginGzip.Gzip(ginGzip.DefaultCompression))
	if err := r.SetTrustedProxies(nil); err != nil {
		s.log.Error("api: set trusted proxies: %v", err)
	}

	r.GET("/healthz", s.healthz)

	g := r.Group("/api")
	g.Use(cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	}))
	if s.limiters != nil {
		g.Use(rateLimitMiddleware(s.limiters))
	}
	if s.cfg.Token != "" {
		g.Use(tokenMiddleware(s.cfg.Token))
	}

	g.GET("/status", s.getStatus)
	g.POST("/start", s.postStart)
	g.POST("/stop", s.postStop)
	g.POST("/toggle", s.postToggle)

	g.GET("/settings", s.getSettings)
	g.PATCH("/settings", s.patchSettings)
	g.GET("/modes", s.getModes)

	g.GET("/profiles", s.listProfiles)
	g.POST("/profiles", s.createProfile)
	g.GET("/profiles/:id", s.getProfile)
	g.DELETE("/profiles/:id", s.deleteProfile)
	g.POST("/profiles/:id/load", s.loadProfile)

	g.GET("/logs", s.listLogs)
	g.GET("/logs/stats", s.logStats)
	g.GET("/logs/export", s.exportLogs)
	g.DELETE("/logs", s.clearLogs)
	g.DELETE("/logs/:id", s.deleteLog)

	g.GET("/windows", s.listWindows)
	g.POST("/keys", s.postKey)
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		defer close(idleConnsClosed)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					s.log.Error("api shutdown: %v", err)
				}
				return
			case <-ticker.C:
				if s.limiters != nil {
					if n := s.limiters.prune(limiterTTL); n > 0 {
						s.log.Debug("api: pruned %d idle rate limiters", n)
					}
				}
			}
		}
	}()

	s.log.Info("API listening on http://%s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve API: %w", err)
	}
	<-idleConnsClosed
	return nil
}
