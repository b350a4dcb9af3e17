// Package seqkit runs the seqkit command-line tool on request content,
// either from the local PATH or inside a locked-down container.
package seqkit

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"fastx-gateway/internal/config"
)

// Backend executes seqkit invocations.
type Backend interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
	RunStreaming(ctx context.Context, inv Invocation, stdout, stderr io.Writer) (*Result, error)
	// Version returns the output of `seqkit version`.
	Version(ctx context.Context) (string, error)
	Name() string
	Close() error
}

// activeCounter is implemented by runners that track runs in flight.
type activeCounter interface {
	ActiveCount() int64
}

// NewBackend picks a backend from cfg.Backend: the local binary when it is on
// PATH, Docker otherwise. When neither is usable in auto mode the local
// runner is still returned so every call reports seqkit as unavailable.
func NewBackend(cfg config.SeqkitConfig) (Backend, error) {
	preference := cfg.Backend
	if preference == "" {
		preference = "auto"
	}

	switch preference {
	case "local":
		return NewLocalRunner(cfg), nil
	case "docker":
		return newDockerBackend(cfg)
	case "auto":
		if _, err := exec.LookPath(cfg.Path); err == nil {
			log.Info().Str("path", cfg.Path).Msg("using local seqkit backend")
			return NewLocalRunner(cfg), nil
		}
		backend, err := newDockerBackend(cfg)
		if err == nil {
			log.Info().Str("image", cfg.DockerImage).Msg("using Docker seqkit backend")
			return backend, nil
		}
		log.Warn().Err(err).Str("path", cfg.Path).
			Msg("seqkit not found locally and Docker unavailable; seqkit endpoints will report unavailable")
		return NewLocalRunner(cfg), nil
	default:
		return nil, fmt.Errorf("unknown backend %q: must be auto, local, or docker", preference)
	}
}

func newDockerBackend(cfg config.SeqkitConfig) (Backend, error) {
	if _, err := exec.LookPath("docker"); err != nil {
		return nil, fmt.Errorf("docker not found in PATH: %w", err)
	}

	if err := exec.Command("docker", "info").Run(); err != nil {
		return nil, fmt.Errorf("docker daemon not reachable: %w", err)
	}

	return NewDockerRunner(cfg)
}

// parseVersion extracts "v2.8.2" from "seqkit v2.8.2". Unknown output is
// returned trimmed.
func parseVersion(out string) string {
	out = strings.TrimSpace(out)
	for _, f := range strings.Fields(out) {
		if strings.HasPrefix(f, "v") && len(f) > 1 && f[1] >= '0' && f[1] <= '9' {
			return f
		}
	}
	return out
}
