package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sandevgo/tuskmem/internal/config"
	"github.com/sandevgo/tuskmem/pkg/log"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the agent and memory over HTTP.
type Server struct {
	cfg    *config.ServerConfig
	server *http.Server
}

func NewServer(ctx context.Context, cfg *config.ServerConfig, agent Agent, mem Memory) *Server {
	if !config.IsDebug() {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		cfg: cfg,
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           NewRouter(ctx, cfg, agent, mem),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.cfg.ListenAddr).Msg("starting http server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
