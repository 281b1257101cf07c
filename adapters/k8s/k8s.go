// Package k8s wires a control engine to a Kubernetes cluster: it records
// the currently applied control-state id as a Node annotation so a
// CurrentFunc can recover it across a host restart, and an ApplyFunc
// keeps that annotation in sync with every dispatched transition.
package k8s

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/util/flowcontrol"
)

// AnnotationKey is the Node annotation this adapter reads and writes.
const AnnotationKey = "bard.connorimes.github.com/state-id"

// Client wraps a rate-limited in-cluster clientset scoped to one node.
type Client struct {
	clientset *kubernetes.Clientset
	nodeName  string
}

// New builds an in-cluster Client for nodeName, pairing
// rest.InClusterConfig with a client-side token-bucket rate limiter.
func New(nodeName string) (*Client, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		return nil, fmt.Errorf("k8s: loading in-cluster config: %w", err)
	}
	config.RateLimiter = flowcontrol.NewTokenBucketRateLimiter(80, 100)

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("k8s: building clientset: %w", err)
	}
	return &Client{clientset: clientset, nodeName: nodeName}, nil
}

// Apply patches the Node's annotation to record newID as the applied
// control-state id.
func (c *Client) Apply(applyStates any, numStates, newID, lastID int, idleNS int64, isFirstApply bool) {
	patch := fmt.Sprintf(`{"metadata":{"annotations":{%q:%q}}}`, AnnotationKey, strconv.Itoa(newID))
	_, err := c.clientset.CoreV1().Nodes().Patch(
		context.Background(), c.nodeName, types.MergePatchType, []byte(patch), metav1.PatchOptions{})
	if err != nil {
		log.WithFields(log.Fields{"node": c.nodeName, "newID": newID, "err": err}).
			Error("k8s: failed to annotate node with new state id")
	}
}

// Current reads back the state id most recently recorded by Apply. It
// returns an error (making New default to the highest state id) if the
// annotation is absent, matching a first-ever boot on this node.
func (c *Client) Current(applyStates any, numStates int) (int, error) {
	var node *corev1.Node
	node, err := c.clientset.CoreV1().Nodes().Get(context.Background(), c.nodeName, metav1.GetOptions{})
	if err != nil {
		return 0, fmt.Errorf("k8s: fetching node %s: %w", c.nodeName, err)
	}
	raw, ok := node.Annotations[AnnotationKey]
	if !ok {
		return 0, fmt.Errorf("k8s: node %s has no %s annotation", c.nodeName, AnnotationKey)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("k8s: parsing %s annotation %q: %w", AnnotationKey, raw, err)
	}
	if id < 0 || id >= numStates {
		return 0, fmt.Errorf("k8s: annotated state id %d out of range [0,%d)", id, numStates)
	}
	return id, nil
}
