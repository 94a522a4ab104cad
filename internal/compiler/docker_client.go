package compiler

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/luckyG0429/athena2/internal/model"
)

const defaultPingTimeout = 5 * time.Second

// Docker host environment variables, most specific first.
const (
	EnvDockerHost    = "ATH2_DOCKER_HOST"
	envStdDockerHost = "DOCKER_HOST"
)

const windowsDockerPipe = `//./pipe/docker_engine`

// DockerClient is the daemon connection of the docker engine.
type DockerClient struct {
	inner *client.Client
}

// NewDockerClient connects to the host named by ATH2_DOCKER_HOST or
// DOCKER_HOST, or to the first socket of the platform that exists.
func NewDockerClient() (*DockerClient, error) {
	host := firstNonEmpty(os.Getenv(EnvDockerHost), os.Getenv(envStdDockerHost))
	if host == "" {
		var err error
		if host, err = detectDockerHost(); err != nil {
			return nil, model.WrapCLIError(model.ExitGeneralError, "no Docker daemon found", err)
		}
	}

	c, err := client.NewClientWithOpts(client.WithHost(host), client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to create Docker client for %q", host), err)
	}
	return &DockerClient{inner: c}, nil
}

// socketCandidates lists the unix sockets tried on goos, in order.
func socketCandidates(goos, home string) []string {
	switch goos {
	case "darwin":
		paths := []string{"/var/run/docker.sock"}
		if home != "" {
			paths = append(paths,
				filepath.Join(home, ".docker", "run", "docker.sock"),
				filepath.Join(home, ".colima", "default", "docker.sock"))
		}
		return paths
	case "windows":
		return nil
	default:
		paths := []string{"/var/run/docker.sock"}
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			paths = append(paths, filepath.Join(dir, "docker.sock"))
		}
		return paths
	}
}

// detectDockerHost returns the host URI of the first socket that exists.
// Named pipes cannot be stat'ed, so Windows is checked with a dial.
func detectDockerHost() (string, error) {
	if runtime.GOOS == "windows" {
		conn, err := net.DialTimeout("pipe", windowsDockerPipe, time.Second)
		if err != nil {
			return "", fmt.Errorf("no Docker pipe at %s: %w", windowsDockerPipe, err)
		}
		_ = conn.Close()
		return "npipe://" + windowsDockerPipe, nil
	}

	home, _ := os.UserHomeDir()
	paths := socketCandidates(runtime.GOOS, home)
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return "unix://" + path, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at %v (is Docker running?)", paths)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Ping verifies that the Docker daemon is reachable.
func (c *DockerClient) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if _, err := c.inner.Ping(pingCtx); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "Docker daemon did not answer", err)
	}
	return nil
}

// Close releases the connection.
func (c *DockerClient) Close() error {
	if c.inner != nil {
		return c.inner.Close()
	}
	return nil
}

// API returns the container operations used by the docker engine.
func (c *DockerClient) API() ContainerAPI {
	return c.inner
}
