package config

import (
	"net"
	"strconv"

	"github.com/m-mizutani/gitdub/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr          string
	TrustProxy    bool
	AsyncDispatch bool
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address, overrides gitdub.bind and gitdub.port of the config file",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("GITDUB_ADDR"),
		},
		&cli.BoolFlag{
			Name:        "trust-proxy",
			Usage:       "Take the client address from X-Forwarded-For / X-Real-IP",
			Destination: &c.TrustProxy,
			Sources:     cli.EnvVars("GITDUB_TRUST_PROXY"),
		},
		&cli.BoolFlag{
			Name:        "async-dispatch",
			Usage:       "Respond to webhooks before mirroring and notifying",
			Destination: &c.AsyncDispatch,
			Sources:     cli.EnvVars("GITDUB_ASYNC_DISPATCH"),
		},
	}
}

// ListenAddr returns the --addr flag if set, otherwise bind:port from the config file
func (c *Server) ListenAddr(cfg *model.Config) string {
	if c.Addr != "" {
		return c.Addr
	}
	return net.JoinHostPort(cfg.GitDub.Bind, strconv.Itoa(cfg.GitDub.Port))
}
