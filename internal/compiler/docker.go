package compiler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/luckyG0429/athena2/internal/bundle"
	"github.com/luckyG0429/athena2/internal/model"
)

// WorkspaceDir is where the app directory is mounted inside the container.
const WorkspaceDir = "/workspace"

// removeTimeout bounds container removal after a run, including runs whose
// context was cancelled.
const removeTimeout = 30 * time.Second

// ContainerAPI is the subset of the Docker Engine client used by the docker
// engine. *client.Client satisfies it.
type ContainerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
}

// DockerCompiler runs the external bundler inside a container.
type DockerCompiler struct {
	api     ContainerAPI
	image   string
	command []string
	appPath string
	buildID string
	closer  io.Closer
	now     func() time.Time
}

// NewDocker returns a docker engine using api.
func NewDocker(api ContainerAPI, settings model.CompilerSettings, opts Options) *DockerCompiler {
	img := settings.Image
	if img == "" {
		img = model.DefaultDockerImage
	}
	command := settings.Command
	if len(command) == 0 {
		command = DefaultCommand
	}
	return &DockerCompiler{
		api:     api,
		image:   img,
		command: append([]string(nil), command...),
		appPath: opts.AppPath,
		buildID: opts.BuildID,
		now:     time.Now,
	}
}

// withCloser attaches the client that owns api.
func (d *DockerCompiler) withCloser(c io.Closer) *DockerCompiler {
	d.closer = c
	return d
}

// Name implements Compiler.
func (d *DockerCompiler) Name() string {
	return model.EngineDocker
}

// Close releases the Docker client.
func (d *DockerCompiler) Close() error {
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Run implements Compiler.
//
// The flow is:
//  1. Rebase the configuration onto WorkspaceDir and write it into the app
//     directory so the container can read it
//  2. Create the container (pulling the image once if it is missing)
//  3. Start it, wait for it to exit, and collect its logs
//  4. Parse stdout as stats, unless the container failed without reporting
//     errors; the container is always removed
func (d *DockerCompiler) Run(ctx context.Context, cfg *bundle.Config) (*Stats, error) {
	// Step 1: Write the rebased configuration inside the bind mount.
	rebased := bundle.Rebase(cfg, d.appPath, WorkspaceDir)
	data, err := bundle.Marshal(rebased, bundle.FormatJSON)
	if err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(d.appPath, ".ath2-"+cfg.Stage+"-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create container config: %w", err)
	}
	defer os.Remove(f.Name())
	_, werr := f.Write(data)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return nil, fmt.Errorf("failed to write container config: %w", werr)
	}

	// Step 2: Create the container.
	args := append(append([]string(nil), d.command...), ConfigFlag, WorkspaceDir+"/"+filepath.Base(f.Name()))
	id, err := d.create(ctx, cfg, args)
	if err != nil {
		return nil, err
	}
	defer d.remove(id)

	// Step 3: Start, wait, collect logs.
	if err := d.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start build container: %w", err)
	}

	exitCode, err := d.wait(ctx, id)
	if err != nil {
		return nil, err
	}

	logs, err := d.api.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read build container logs: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return nil, fmt.Errorf("failed to read build container logs: %w", err)
	}

	// Step 4: Stats on stdout win over the exit status only when they
	// report errors; a failing container with a clean report crashed.
	if stats, err := ParseStats(stdout.Bytes()); err == nil && (exitCode == 0 || len(stats.Errors) > 0) {
		return stats, nil
	}
	return nil, fmt.Errorf("build container exited with status %d: %s",
		exitCode, strings.TrimSpace(stderr.String()))
}

// create creates the build container, pulling the image when the daemon
// does not have it.
func (d *DockerCompiler) create(ctx context.Context, cfg *bundle.Config, args []string) (string, error) {
	config := &container.Config{
		Image:      d.image,
		Cmd:        args,
		WorkingDir: WorkspaceDir,
		Env:        envList(cfg.Env),
		Labels:     BuildLabels(d.buildID, cfg.Stage, d.appPath, d.now()),
	}
	hostConfig := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: d.appPath,
			Target: WorkspaceDir,
		}},
	}

	resp, err := d.api.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if cerrdefs.IsNotFound(err) {
		if perr := d.pull(ctx); perr != nil {
			return "", perr
		}
		resp, err = d.api.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	}
	if err != nil {
		return "", fmt.Errorf("failed to create build container from %s: %w", d.image, err)
	}
	return resp.ID, nil
}

// pull downloads the engine image. The progress stream must be drained for
// the pull to complete.
func (d *DockerCompiler) pull(ctx context.Context) error {
	rc, err := d.api.ImagePull(ctx, d.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull %s: %w", d.image, err)
	}
	defer rc.Close()
	if _, err := io.Copy(io.Discard, rc); err != nil {
		return fmt.Errorf("failed to pull %s: %w", d.image, err)
	}
	return nil
}

// wait blocks until the container stops and returns its exit code.
func (d *DockerCompiler) wait(ctx context.Context, id string) (int64, error) {
	statusCh, errCh := d.api.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return 0, fmt.Errorf("failed to wait for build container: %w", err)
	case status := <-statusCh:
		if status.Error != nil {
			return status.StatusCode, fmt.Errorf("build container failed: %s", status.Error.Message)
		}
		return status.StatusCode, nil
	}
}

// remove force-removes the container, even after ctx was cancelled.
func (d *DockerCompiler) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()
	_ = d.api.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
}

// ListBuildContainers returns the containers created by ath2, including
// stopped ones. Containers with unreadable labels are skipped.
func ListBuildContainers(ctx context.Context, api ContainerAPI) ([]BuildContainer, error) {
	list, err := api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelManagedBy+"="+ManagedByValue)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list build containers: %w", err)
	}

	out := make([]BuildContainer, 0, len(list))
	for _, c := range list {
		bc, err := ParseLabels(c.ID, c.Labels)
		if err != nil {
			continue
		}
		bc.State = string(c.State)
		out = append(out, *bc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// RemoveBuildContainers force-removes the given containers and returns how
// many were removed.
func RemoveBuildContainers(ctx context.Context, api ContainerAPI, containers []BuildContainer) (int, error) {
	removed := 0
	for _, c := range containers {
		if err := api.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			return removed, fmt.Errorf("failed to remove container %s: %w", c.ID, err)
		}
		removed++
	}
	return removed, nil
}

// envList renders env as sorted KEY=VALUE pairs.
func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
