package attachment

import (
	"fmt"

	"github.com/authattach/authattach/pkg/proxy/container/defaults"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// DefaultGateway is the Gateway HTTPRoutes are bound to unless
	// the caller picks a different one
	DefaultGateway string = "istio-ingressgateway"
)

// Options identifies the target workload and carries the sidecar
// configuration for a reconciliation run. The zero values of the
// sidecar fields are resolved by Default().
type Options struct {
	// Name of the target Deployment
	Name string `json:"name"`
	// Namespace of the target Deployment
	Namespace string `json:"namespace"`
	// AppPort is the port the application container listens on.
	// After attachment it is only reachable through the sidecar.
	AppPort int32 `json:"appPort"`
	// Hostname is the external hostname routed to the workload.
	// Hostnames are the unique key for routing rules.
	Hostname string `json:"hostname"`
	// Service exposing the workload. Defaults to Name.
	Service string `json:"service,omitempty"`
	// CredentialsSecret names the Secret holding the OAuth2 client
	// credentials. Asserted to exist, never read.
	CredentialsSecret string `json:"credentialsSecret"`
	// Gateway the routing rule attaches to
	Gateway string `json:"gateway,omitempty"`
	// GatewayNamespace, empty means same namespace as the route
	GatewayNamespace string `json:"gatewayNamespace,omitempty"`

	SidecarImage string   `json:"sidecarImage,omitempty"`
	SidecarPort  int32    `json:"sidecarPort,omitempty"`
	ConfigMap    string   `json:"configMap,omitempty"`
	ExtraArgs    []string `json:"extraArgs,omitempty"`

	// RolloutTimeout bounds the AwaitRollout step. Zero or negative
	// disables waiting.
	RolloutTimeout metav1.Duration `json:"rolloutTimeout,omitempty"`

	// DryRun computes and logs all patches without issuing any write
	DryRun bool `json:"-"`
}

// Default resolves unset sidecar fields to the package defaults
func (o *Options) Default() {
	if o.Service == "" {
		o.Service = o.Name
	}
	if o.Gateway == "" {
		o.Gateway = DefaultGateway
	}
	if o.SidecarImage == "" {
		o.SidecarImage = defaults.Image
	}
	if o.SidecarPort == 0 {
		o.SidecarPort = defaults.ListenPort
	}
	if o.ConfigMap == "" {
		o.ConfigMap = defaults.ConfigMap
	}
}

// Validate checks that the caller supplied the workload identity
func (o Options) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("workload name is required")
	}
	if o.Namespace == "" {
		return fmt.Errorf("workload namespace is required")
	}
	if o.AppPort < 1 || o.AppPort > 65535 {
		return fmt.Errorf("app port %d is not in the range 1-65535", o.AppPort)
	}
	if o.Hostname == "" {
		return fmt.Errorf("hostname is required")
	}
	if o.CredentialsSecret == "" {
		return fmt.Errorf("credentials secret name is required")
	}
	return nil
}
