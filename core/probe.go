package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// composeProjectLabel is set by compose on every container it creates.
const composeProjectLabel = "com.docker.compose.project"

// DockerProbe answers environment questions about the docker daemon: is it
// reachable, is an image present, did a previous run leave containers behind.
type DockerProbe struct {
	client client.APIClient
}

// NewDockerProbe creates a probe from the environment (DOCKER_HOST etc.).
func NewDockerProbe() (*DockerProbe, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	return &DockerProbe{client: cli}, nil
}

// NewDockerProbeFromClient wraps an existing client, used by tests.
func NewDockerProbeFromClient(cli client.APIClient) *DockerProbe {
	return &DockerProbe{client: cli}
}

// Ping checks daemon reachability.
func (p *DockerProbe) Ping(ctx context.Context) error {
	if _, err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrDaemonUnreachable, err)
	}
	return nil
}

// LeftoverContainers returns the names of containers labeled with the given
// compose project, including stopped ones. An empty result after a teardown
// means the down step did its job.
func (p *DockerProbe) LeftoverContainers(ctx context.Context, project string) ([]string, error) {
	f := filters.NewArgs(filters.Arg("label", composeProjectLabel+"="+project))
	containers, err := p.client.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
	if err != nil {
		return nil, fmt.Errorf("list containers for project %q: %w", project, err)
	}

	names := make([]string, 0, len(containers))
	for _, c := range containers {
		if len(c.Names) > 0 {
			names = append(names, strings.TrimPrefix(c.Names[0], "/"))
		} else {
			names = append(names, c.ID)
		}
	}
	return names, nil
}

// HasImageLocally reports whether the given image reference is present in the
// local image store.
func (p *DockerProbe) HasImageLocally(ctx context.Context, ref string) (bool, error) {
	if _, err := reference.ParseNormalizedNamed(ref); err != nil {
		return false, fmt.Errorf("invalid image reference %q: %w", ref, err)
	}

	f := filters.NewArgs(filters.Arg("reference", ref))
	images, err := p.client.ImageList(ctx, image.ListOptions{Filters: f})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("list images for %q: %w", ref, err)
	}
	return len(images) > 0, nil
}

// Close closes the underlying client.
func (p *DockerProbe) Close() error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("closing docker client: %w", err)
	}
	return nil
}
