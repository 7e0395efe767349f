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
	"context"
	"os"

	"github.com/authattach/authattach/pkg/reconcilers/attachment"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify that a workload's authentication attachment is complete",
	Long: "Read-only check of the Deployment, Service and routing rule. Exits 0 when the " +
		"sidecar is fully attached, 1 otherwise. Never mutates the cluster.",
	Run: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addWorkloadFlags(verifyCmd)
	addSidecarFlags(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) {

	ctrl.SetLogger(zap.New(zap.UseDevMode(debug)))
	printVersion()

	opts, err := resolveOptions(cmd)
	if err != nil {
		setupLog.Error(err, "invalid options")
		os.Exit(ExitPreflightFailure)
	}

	cl, err := newClusterClient()
	if err != nil {
		setupLog.Error(err, "unable to create cluster client")
		os.Exit(ExitPreflightFailure)
	}

	reconciler := attachment.NewAttachmentReconciler(
		context.Background(), ctrl.Log.WithName("verify"), cl, opts)

	report, err := reconciler.Verify()
	if err != nil {
		setupLog.Error(err, "verify failed")
		os.Exit(ExitPreflightFailure)
	}

	setupLog.Info("attachment status",
		"sidecarAttached", report.SidecarAttached,
		"servicePortExposed", report.ServicePortExposed,
		"routeTargetsSidecar", report.RouteTargetsSidecar)

	if !report.Attached() {
		os.Exit(ExitPreflightFailure)
	}
}
