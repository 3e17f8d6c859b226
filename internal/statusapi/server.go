// Package statusapi serves read-only playback state over HTTP.
package statusapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/keshon/jukebox/internal/music/player"
	"github.com/keshon/jukebox/internal/version"
)

// Snapshotter lists the live sessions.
type Snapshotter interface {
	Snapshot() []player.Snapshot
}

type Server struct {
	sessions Snapshotter
	router   *gin.Engine
}

func New(sessions Snapshotter) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{sessions: sessions, router: gin.New()}
	s.router.Use(gin.Recovery(), requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/sessions", s.listSessions)
	s.router.GET("/sessions/:guildID", s.getSession)
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("status server shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("status server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": version.AppName,
		"version": version.Version,
	})
}

func (s *Server) listSessions(c *gin.Context) {
	snaps := s.sessions.Snapshot()
	if snaps == nil {
		snaps = []player.Snapshot{}
	}
	c.JSON(http.StatusOK, snaps)
}

func (s *Server) getSession(c *gin.Context) {
	guildID := c.Param("guildID")
	for _, snap := range s.sessions.Snapshot() {
		if snap.GuildID == guildID {
			c.JSON(http.StatusOK, snap)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "no session for guild"})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("status request")
	}
}
