// Package localproxy runs the secure tunneling local proxy in a Docker
// container, terminating the source side of a tunnel on a host port.
package localproxy

import (
	"context"
	"slices"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/sirupsen/logrus"
)

// AccessTokenEnv is the environment variable the localproxy image reads
// its source access token from.
const AccessTokenEnv = "AWSIOT_TUNNEL_ACCESS_TOKEN"

// DockerAPI is the subset of the Docker Engine client the Launcher calls.
type DockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
}

// Spec describes the proxy container for one thing.
type Spec struct {
	ThingName   string
	Image       string
	Token       string
	Region      string
	BindAddress string
	Port        int
}

// Launcher replaces the proxy container named after a thing. At most one
// container per thing name runs at a time.
type Launcher struct {
	Client DockerAPI
}

// Launch stops any running container named after the thing, waits for it
// to terminate, and starts a fresh one holding the access token. The
// container self-removes on exit.
func (l *Launcher) Launch(ctx context.Context, spec Spec) error {
	if err := l.stopExisting(ctx, spec.ThingName); err != nil {
		return err
	}

	portStr := strconv.Itoa(spec.Port)
	port, err := nat.NewPort("tcp", portStr)
	if err != nil {
		return &RuntimeError{Op: "map port " + portStr, Err: err}
	}
	cfg := &container.Config{
		Image: spec.Image,
		Env:   []string{AccessTokenEnv + "=" + spec.Token},
		Cmd: []string{
			"--region", spec.Region,
			"-b", spec.BindAddress,
			"-s", portStr,
			"-c", "/etc/ssl/certs",
			"--destination-client-type", "V1",
		},
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}
	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{port: []nat.PortBinding{{HostPort: portStr}}},
		AutoRemove:   true,
	}

	created, err := l.Client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.ThingName)
	if err != nil {
		return &RuntimeError{Op: "create container " + spec.ThingName, Err: err}
	}
	if err := l.Client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return &RuntimeError{Op: "start container " + spec.ThingName, Err: err}
	}
	logrus.Infof("container %q started on port %d", spec.ThingName, spec.Port)
	return nil
}

// stopExisting stops a running container with exactly the given name and
// does not return until it has terminated. Starting the replacement
// before the old container releases the name and port would race.
func (l *Launcher) stopExisting(ctx context.Context, name string) error {
	list, err := l.Client.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return &RuntimeError{Op: "list containers", Err: err}
	}

	// The docker name filter matches substrings.
	id := ""
	for _, c := range list {
		if slices.Contains(c.Names, "/"+name) {
			id = c.ID
			break
		}
	}
	if id == "" {
		return nil
	}

	logrus.Infof("container %q is already running, stopping it", name)
	if err := l.Client.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		return &RuntimeError{Op: "stop container " + name, Err: err}
	}
	waitCh, errCh := l.Client.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case <-waitCh:
	case err := <-errCh:
		// A self-removing container can be reaped before the wait lands.
		if err != nil && !errdefs.IsNotFound(err) {
			return &RuntimeError{Op: "wait for container " + name, Err: err}
		}
	}
	logrus.Infof("container %q stopped", name)
	return nil
}
