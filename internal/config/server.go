package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/tuskmem/pkg/log"
)

type ServerConfig struct {
	ListenAddr string `env:"SERVER_ADDR" envDefault:":8001"`
	// Empty token is accepted at startup; protected routes then answer 500.
	BearerToken string `env:"API_BEARER_TOKEN"`
}

func NewServerConfig(ctx context.Context) *ServerConfig {
	c := &ServerConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Server config")
	}
	return c
}
