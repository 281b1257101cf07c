// Package containerd wires a control engine to a running container's
// cgroup CPU quota: ApplyFunc reconfigures the task's resources on a
// state transition, and Watch reports container and task lifecycle
// events in the client's namespace to a caller-supplied callback, so a
// host can stop driving the engine once the workload it's steering has
// exited.
package containerd

import (
	"context"
	"fmt"

	"github.com/containerd/containerd"
	eventsapi "github.com/containerd/containerd/api/events"
	"github.com/containerd/containerd/namespaces"
	typeurl "github.com/containerd/typeurl/v2"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	log "github.com/sirupsen/logrus"
)

// CPUQuota maps a control-state id to the cgroup CPU quota (in
// microseconds per 100ms period) that realizes it, in the same order as
// the engine's states.Table.
type CPUQuota []int64

// Client wraps a containerd connection scoped to one container's task.
type Client struct {
	socketPath  string
	namespace   string
	containerID string

	client *containerd.Client
}

// New dials the containerd socket. namespace is normally "k8s.io" when
// the container was created through a Kubernetes CRI shim.
func New(socketPath, namespace, containerID string) (*Client, error) {
	c, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("containerd: connecting to %s: %w", socketPath, err)
	}
	return &Client{socketPath: socketPath, namespace: namespace, containerID: containerID, client: c}, nil
}

// Close releases the underlying containerd connection.
func (c *Client) Close() error { return c.client.Close() }

func (c *Client) ctx() context.Context {
	return namespaces.WithNamespace(context.Background(), c.namespace)
}

// Apply returns an engine.ApplyFunc that updates the container's task to
// the CPU quota for newID via Task.Update with containerd.WithResources.
func (c *Client) Apply(quotas CPUQuota) func(applyStates any, numStates, newID, lastID int, idleNS int64, isFirstApply bool) {
	return func(applyStates any, numStates, newID, lastID int, idleNS int64, isFirstApply bool) {
		if newID < 0 || newID >= len(quotas) {
			log.WithField("newID", newID).Error("containerd: state id out of range")
			return
		}
		ctx := c.ctx()
		container, err := c.client.LoadContainer(ctx, c.containerID)
		if err != nil {
			log.WithFields(log.Fields{"container": c.containerID, "err": err}).
				Error("containerd: loading container")
			return
		}
		task, err := container.Task(ctx, nil)
		if err != nil {
			log.WithFields(log.Fields{"container": c.containerID, "err": err}).
				Error("containerd: loading task")
			return
		}
		quota := quotas[newID]
		period := uint64(100000)
		resources := &specs.LinuxResources{
			CPU: &specs.LinuxCPU{Quota: &quota, Period: &period},
		}
		if err := task.Update(ctx, containerd.WithResources(resources)); err != nil {
			log.WithFields(log.Fields{"container": c.containerID, "newID": newID, "err": err}).
				Error("containerd: task update failed")
		}
	}
}

// Watch subscribes to container and task lifecycle events
// (create/start/exit/delete) in the client's namespace and invokes
// onEvent with each decoded event's topic and container id. Events are
// not filtered to the client's own containerID. It runs until the event
// stream closes, ctx is canceled, or the subscription fails.
func (c *Client) Watch(ctx context.Context, onEvent func(topic string, containerID string)) error {
	nsCtx := namespaces.WithNamespace(ctx, c.namespace)
	eventsCh, errsCh := c.client.EventService().Subscribe(nsCtx,
		`topic=="/containers/create"`,
		`topic=="/tasks/start"`,
		`topic=="/tasks/exit"`,
		`topic=="/tasks/delete"`,
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-eventsCh:
			if !ok {
				return nil
			}
			ev, err := typeurl.UnmarshalAny(msg.Event)
			if err != nil {
				log.WithField("err", err).Error("containerd: unmarshal event")
				continue
			}
			switch e := ev.(type) {
			case *eventsapi.ContainerCreate:
				onEvent("create", e.ID)
			case *eventsapi.TaskStart:
				onEvent("start", e.ContainerID)
			case *eventsapi.TaskExit:
				onEvent("exit", e.ContainerID)
			case *eventsapi.TaskDelete:
				onEvent("delete", e.ContainerID)
			}
		case err := <-errsCh:
			return fmt.Errorf("containerd: event subscription failed: %w", err)
		}
	}
}
