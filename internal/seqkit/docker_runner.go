package seqkit

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"fastx-gateway/internal/config"
	"fastx-gateway/pkg/seccomp"
)

const containerPrefix = "fastx-seqkit-"

// DockerRunner runs seqkit inside a throwaway container per invocation.
type DockerRunner struct {
	image         string
	limits        ResourceLimits
	maxOutput     int
	sem           chan struct{}
	active        atomic.Int64
	wg            sync.WaitGroup
	dockerHost    string // resolved DOCKER_HOST (e.g. from Docker context)
	cancelCleanup context.CancelFunc
}

func NewDockerRunner(cfg config.SeqkitConfig) (*DockerRunner, error) {
	limits := LimitsFromConfig(cfg.Limits)
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("seqkit container limits: %w", err)
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 16
	}

	d := &DockerRunner{
		image:      cfg.DockerImage,
		limits:     limits,
		maxOutput:  cfg.MaxOutputBytes,
		sem:        make(chan struct{}, maxConcurrent),
		dockerHost: resolveDockerHost(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.cancelCleanup = cancel
	go d.orphanCleanupLoop(ctx)

	return d, nil
}

func (d *DockerRunner) Name() string { return "docker" }

// orphanCleanupLoop periodically removes seqkit containers that survived a
// server crash.
func (d *DockerRunner) orphanCleanupLoop(ctx context.Context) {
	d.cleanupOrphans()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.cleanupOrphans()
		case <-ctx.Done():
			return
		}
	}
}

func (d *DockerRunner) cleanupOrphans() {
	out, err := d.docker("ps", "--filter", "name="+containerPrefix, "-q").Output()
	if err != nil {
		return
	}
	running := d.active.Load()
	for _, id := range strings.Fields(strings.TrimSpace(string(out))) {
		if running > 0 {
			// Containers of in-flight runs share the prefix.
			log.Debug().Int64("active", running).Msg("skipping orphan cleanup while runs are active")
			return
		}
		log.Warn().Str("container_id", id).Msg("removing orphaned seqkit container")
		_ = d.docker("rm", "-f", id).Run()
	}
}

// resolveDockerHost figures out the Docker socket. On macOS, Docker Desktop uses
// a context-specific socket that child processes don't inherit.
func resolveDockerHost() string {
	if h := os.Getenv("DOCKER_HOST"); h != "" {
		return h
	}

	out, err := exec.Command("docker", "context", "inspect", "--format", "{{.Endpoints.docker.Host}}").Output()
	if err == nil {
		host := strings.TrimSpace(string(out))
		if host != "" {
			log.Debug().Str("docker_host", host).Msg("resolved Docker host from context")
			return host
		}
	}

	return ""
}

func (d *DockerRunner) env() []string {
	if d.dockerHost == "" {
		return nil
	}
	return []string{"DOCKER_HOST=" + d.dockerHost}
}

func (d *DockerRunner) docker(args ...string) *exec.Cmd {
	cmd := exec.Command("docker", args...) // #nosec G204 -- fixed subcommands, ids from docker ps
	if env := d.env(); env != nil {
		cmd.Env = append(os.Environ(), env...)
	}
	return cmd
}

func (d *DockerRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	return d.run(ctx, inv, nil, nil)
}

func (d *DockerRunner) RunStreaming(ctx context.Context, inv Invocation, stdout, stderr io.Writer) (*Result, error) {
	return d.run(ctx, inv, stdout, stderr)
}

func (d *DockerRunner) run(ctx context.Context, inv Invocation, stdout, stderr io.Writer) (*Result, error) {
	execID := uuid.New().String()
	logger := log.With().
		Str("exec_id", execID).
		Str("command", inv.Command).
		Logger()

	release, err := acquire(ctx, d.sem, execID)
	if err != nil {
		return nil, err
	}
	defer release()

	d.wg.Add(1)
	defer d.wg.Done()
	d.active.Add(1)
	defer d.active.Add(-1)

	return withTempDir(execID, func(hostDir string) (*Result, error) {
		dataDir := filepath.Join(hostDir, "data")
		if err := os.Mkdir(dataDir, 0755); err != nil { // #nosec G301 -- mounted read-only for the nobody user
			return nil, &ExecutionError{ExecID: execID, Op: "create_data_dir", Err: err}
		}
		input, err := writeInput(dataDir, inv)
		if err != nil {
			return nil, &ExecutionError{ExecID: execID, Op: "write_input", Err: err}
		}

		profileJSON, err := seccomp.DockerProfileJSON()
		if err != nil {
			return nil, &ExecutionError{ExecID: execID, Op: "seccomp_profile", Err: err}
		}
		seccompPath := filepath.Join(hostDir, "seccomp.json")
		if err := os.WriteFile(seccompPath, profileJSON, 0600); err != nil {
			return nil, &ExecutionError{ExecID: execID, Op: "write_seccomp", Err: err}
		}

		name := containerPrefix + execID
		args := d.buildDockerArgs(name, dataDir, "/data/"+filepath.Base(input), seccompPath, inv)
		logger.Info().Str("image", d.image).Msg("starting seqkit container")

		res, err := runProcess(ctx, process{
			execID:    execID,
			command:   inv.Command,
			name:      "docker",
			args:      args,
			env:       d.env(),
			timeout:   inv.Timeout,
			maxOutput: d.maxOutput,
			onAbort: func() {
				// Killing the docker CLI does not stop the container.
				if err := d.docker("rm", "-f", name).Run(); err != nil {
					logger.Warn().Err(err).Msg("failed to remove seqkit container")
				}
			},
		}, stdout, stderr)
		if res != nil {
			logger.Info().
				Int("exit_code", res.ExitCode).
				Dur("duration", res.Duration).
				Msg("seqkit container finished")
		}
		return res, err
	})
}

func (d *DockerRunner) buildDockerArgs(name, dataDir, containerInput, seccompPath string, inv Invocation) []string {
	args := []string{
		"run", "--rm",
		"--name", name,
		"--network", "none",
		"--cap-drop", "ALL",
		"--security-opt", "no-new-privileges",
		"--security-opt", "seccomp=" + seccompPath,
		"--read-only",
	}
	args = append(args, d.limits.dockerArgs()...)
	args = append(args,
		"-v", fmt.Sprintf("%s:/data:ro", dataDir),
		"-w", "/data",
		"--user", "65534:65534",
		"-e", "HOME=/tmp",
		d.image,
		"seqkit", inv.Command,
	)
	args = append(args, inv.Args...)
	return append(args, containerInput)
}

func (d *DockerRunner) Version(ctx context.Context) (string, error) {
	res, err := runProcess(ctx, process{
		execID:    "version",
		command:   "version",
		name:      "docker",
		args:      []string{"run", "--rm", "--network", "none", d.image, "seqkit", "version"},
		env:       d.env(),
		timeout:   versionTimeout * 3, // includes container start
		maxOutput: 4096,
	}, nil, nil)
	if err != nil {
		return "", err
	}
	return parseVersion(res.Stdout), nil
}

// ActiveCount reports containers currently running.
func (d *DockerRunner) ActiveCount() int64 {
	return d.active.Load()
}

func (d *DockerRunner) Close() error {
	if d.cancelCleanup != nil {
		d.cancelCleanup()
	}

	// Wait up to 30s for active runs to drain.
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Msg("all seqkit containers drained")
	case <-time.After(30 * time.Second):
		log.Warn().Int64("active", d.active.Load()).Msg("timed out waiting for seqkit containers to drain")
	}
	return nil
}
