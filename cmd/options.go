/*


Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/authattach/authattach/pkg/proxy/container/defaults"
	"github.com/authattach/authattach/pkg/reconcilers/attachment"
	"github.com/spf13/cobra"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

var (
	workloadName      string
	workloadNamespace string
	appPort           int32
	hostname          string
	serviceName       string
	credentialsSecret string
	gateway           string
	gatewayNamespace  string
	sidecarImage      string
	sidecarPort       int32
	configMap         string
	configFile        string
	rolloutTimeout    time.Duration
	dryRun            bool
)

// addWorkloadFlags registers the flags identifying the target workload
func addWorkloadFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&workloadName, "name", "", "Name of the target Deployment.")
	cmd.Flags().StringVar(&workloadNamespace, "namespace", "default", "Namespace of the target Deployment.")
	cmd.Flags().Int32Var(&appPort, "app-port", 0, "Port the application container listens on.")
	cmd.Flags().StringVar(&hostname, "hostname", "", "External hostname routed to the workload.")
	cmd.Flags().StringVar(&serviceName, "service", "", "Service exposing the workload. Defaults to the workload name.")
	cmd.Flags().StringVar(&credentialsSecret, "credentials-secret", "", "Name of the Secret holding the OAuth2 client credentials.")
}

// addSidecarFlags registers the flags configuring the sidecar and the run
func addSidecarFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&gateway, "gateway", "", fmt.Sprintf("Gateway the routing rule attaches to. Defaults to '%s'.", attachment.DefaultGateway))
	cmd.Flags().StringVar(&gatewayNamespace, "gateway-namespace", "", "Namespace of the Gateway. Defaults to the workload namespace.")
	cmd.Flags().StringVar(&sidecarImage, "sidecar-image", "", fmt.Sprintf("Authentication sidecar image. Defaults to '%s'.", defaults.Image))
	cmd.Flags().Int32Var(&sidecarPort, "sidecar-port", 0, fmt.Sprintf("Port the sidecar listens on. Defaults to %d.", defaults.ListenPort))
	cmd.Flags().StringVar(&configMap, "config-map", "", fmt.Sprintf("ConfigMap with the sidecar's static configuration. Defaults to '%s'.", defaults.ConfigMap))
	cmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML file with defaults for this command's flags.")
	cmd.Flags().DurationVar(&rolloutTimeout, "rollout-timeout", 120*time.Second, "How long to wait for the workload rollout. 0 disables waiting.")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and log the patches without writing to the cluster.")
}

// resolveOptions merges, in order of precedence, explicitly set flags,
// the optional YAML config file and the built-in flag defaults
func resolveOptions(cmd *cobra.Command) (attachment.Options, error) {

	// a zero rollout timeout in the config file is a valid value (it
	// disables the wait), so a negative sentinel marks "not set by the
	// config" instead
	opts := attachment.Options{RolloutTimeout: metav1.Duration{Duration: -1}}

	if configFile != "" {
		b, err := os.ReadFile(configFile)
		if err != nil {
			return attachment.Options{}, fmt.Errorf("unable to read config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(b, &opts); err != nil {
			return attachment.Options{}, fmt.Errorf("unable to parse config file '%s': %w", configFile, err)
		}
	}

	if cmd.Flags().Changed("name") || opts.Name == "" {
		opts.Name = workloadName
	}
	if cmd.Flags().Changed("namespace") || opts.Namespace == "" {
		opts.Namespace = workloadNamespace
	}
	if cmd.Flags().Changed("app-port") || opts.AppPort == 0 {
		opts.AppPort = appPort
	}
	if cmd.Flags().Changed("hostname") || opts.Hostname == "" {
		opts.Hostname = hostname
	}
	if cmd.Flags().Changed("credentials-secret") || opts.CredentialsSecret == "" {
		opts.CredentialsSecret = credentialsSecret
	}
	if cmd.Flags().Changed("service") {
		opts.Service = serviceName
	}
	if cmd.Flags().Changed("gateway") {
		opts.Gateway = gateway
	}
	if cmd.Flags().Changed("gateway-namespace") {
		opts.GatewayNamespace = gatewayNamespace
	}
	if cmd.Flags().Changed("sidecar-image") {
		opts.SidecarImage = sidecarImage
	}
	if cmd.Flags().Changed("sidecar-port") {
		opts.SidecarPort = sidecarPort
	}
	if cmd.Flags().Changed("config-map") {
		opts.ConfigMap = configMap
	}
	if cmd.Flags().Changed("rollout-timeout") || opts.RolloutTimeout.Duration < 0 {
		opts.RolloutTimeout = metav1.Duration{Duration: rolloutTimeout}
	}
	opts.DryRun = dryRun

	if err := opts.Validate(); err != nil {
		return attachment.Options{}, err
	}

	return opts, nil
}
