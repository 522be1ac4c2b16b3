package platform

import "context"

// Deployment describes a versioned set of containers to run under one name
// within an environment. For blue-green rollouts the name is the slot.
type Deployment struct {
	Environment string `json:"environment"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Replicas    int    `json:"replicas"`
}

// Pod is a single replica as reported by the platform.
type Pod struct {
	Name  string `json:"name"`
	Phase string `json:"phase"`
}

// PodRunning is the phase reported for a healthy replica.
const PodRunning = "Running"

// DeploymentStatus is the platform's view of a deployment.
type DeploymentStatus struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	DesiredReplicas int    `json:"desired_replicas"`
	RunningReplicas int    `json:"running_replicas"`
	Ready           bool   `json:"ready"`
	Pods            []Pod  `json:"pods"`
}

// AllPodsRunning reports whether every pod is in the running phase.
func (s *DeploymentStatus) AllPodsRunning() bool {
	if s == nil {
		return false
	}
	for _, pod := range s.Pods {
		if pod.Phase != PodRunning {
			return false
		}
	}
	return true
}

// Client is the opaque workload platform. The wire format is the platform's
// own concern; this interface enables mocking in tests.
type Client interface {
	// Ping validates connectivity to the platform API.
	Ping(ctx context.Context) error

	// Deploy creates or updates a named deployment.
	Deploy(ctx context.Context, d Deployment) error

	// Delete removes a named deployment and its resources.
	Delete(ctx context.Context, environment, name string) error

	// Status retrieves the current state of a named deployment.
	Status(ctx context.Context, environment, name string) (*DeploymentStatus, error)

	// SetWeights applies a traffic-weight assignment across named versions.
	SetWeights(ctx context.Context, environment string, weights map[string]int) error

	// ActiveSlot returns the slot currently receiving all traffic.
	ActiveSlot(ctx context.Context, environment string) (string, error)

	// SetActiveSlot flips the routing selector to the given slot.
	SetActiveSlot(ctx context.Context, environment, slot string) error

	// ProbeEndpoint samples the environment's public endpoint once.
	ProbeEndpoint(ctx context.Context, environment string) error

	// Close releases resources associated with the client.
	Close() error
}
