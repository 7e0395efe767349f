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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// newResolveCmd returns a fresh command with the shared flag sets. The
// flags are bound to package vars, so re-registering them also resets
// every var to its flag default between tests.
func newResolveCmd(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addWorkloadFlags(cmd)
	addSidecarFlags(cmd)
	return cmd
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func Test_resolveOptions(t *testing.T) {

	t.Run("Config file alone resolves the workload identity", func(t *testing.T) {
		cmd := newResolveCmd(t)
		path := writeConfigFile(t, `
name: orders
namespace: shop
appPort: 9090
hostname: orders.example.com
credentialsSecret: orders-secret
`)
		if err := cmd.Flags().Set("config", path); err != nil {
			t.Fatal(err)
		}

		opts, err := resolveOptions(cmd)
		if err != nil {
			t.Errorf("resolveOptions() error = %v", err)
			return
		}
		if opts.Name != "orders" || opts.Namespace != "shop" ||
			opts.AppPort != 9090 || opts.Hostname != "orders.example.com" ||
			opts.CredentialsSecret != "orders-secret" {
			t.Errorf("resolveOptions() = %+v, want the config file's identity", opts)
		}
		if opts.RolloutTimeout.Duration != 120*time.Second {
			t.Errorf("resolveOptions() rolloutTimeout = %v, want the 120s default", opts.RolloutTimeout.Duration)
		}
	})

	t.Run("Explicitly set flags win over the config file", func(t *testing.T) {
		cmd := newResolveCmd(t)
		path := writeConfigFile(t, `
name: orders
namespace: shop
appPort: 9090
hostname: orders.example.com
credentialsSecret: orders-secret
rolloutTimeout: 30s
`)
		if err := cmd.Flags().Set("config", path); err != nil {
			t.Fatal(err)
		}
		if err := cmd.Flags().Set("namespace", "staging"); err != nil {
			t.Fatal(err)
		}
		if err := cmd.Flags().Set("rollout-timeout", "10s"); err != nil {
			t.Fatal(err)
		}

		opts, err := resolveOptions(cmd)
		if err != nil {
			t.Errorf("resolveOptions() error = %v", err)
			return
		}
		if opts.Namespace != "staging" {
			t.Errorf("resolveOptions() namespace = %v, want 'staging'", opts.Namespace)
		}
		if opts.RolloutTimeout.Duration != 10*time.Second {
			t.Errorf("resolveOptions() rolloutTimeout = %v, want 10s", opts.RolloutTimeout.Duration)
		}
	})

	t.Run("Config file can disable the rollout wait", func(t *testing.T) {
		cmd := newResolveCmd(t)
		path := writeConfigFile(t, `
name: orders
namespace: shop
appPort: 9090
hostname: orders.example.com
credentialsSecret: orders-secret
rolloutTimeout: 0s
`)
		if err := cmd.Flags().Set("config", path); err != nil {
			t.Fatal(err)
		}

		opts, err := resolveOptions(cmd)
		if err != nil {
			t.Errorf("resolveOptions() error = %v", err)
			return
		}
		if opts.RolloutTimeout.Duration != 0 {
			t.Errorf("resolveOptions() rolloutTimeout = %v, want 0", opts.RolloutTimeout.Duration)
		}
	})

	t.Run("Missing identity still fails validation", func(t *testing.T) {
		cmd := newResolveCmd(t)
		path := writeConfigFile(t, `
name: orders
appPort: 9090
`)
		if err := cmd.Flags().Set("config", path); err != nil {
			t.Fatal(err)
		}

		if _, err := resolveOptions(cmd); err == nil {
			t.Errorf("resolveOptions() error = nil, want a validation error")
		}
	})

	t.Run("Unknown config file keys are rejected", func(t *testing.T) {
		cmd := newResolveCmd(t)
		path := writeConfigFile(t, `
name: orders
namespace: shop
appPort: 9090
hostname: orders.example.com
credentialsSecret: orders-secret
upstreams: http://10.0.0.1:9090
`)
		if err := cmd.Flags().Set("config", path); err != nil {
			t.Fatal(err)
		}

		if _, err := resolveOptions(cmd); err == nil {
			t.Errorf("resolveOptions() error = nil, want a parse error")
		}
	})
}
