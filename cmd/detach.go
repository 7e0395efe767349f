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
	attacherrors "github.com/authattach/authattach/pkg/reconcilers/attachment/errors"
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var detachCmd = &cobra.Command{
	Use:   "detach",
	Short: "Detach the authentication sidecar from a workload",
	Long: "Inverse of attach: removes the sidecar container from the Deployment, drops the " +
		"sidecar port from the Service and points the hostname's routing rule back at the " +
		"application port. A workload without the sidecar is a no-op.",
	Run: runDetach,
}

func init() {
	rootCmd.AddCommand(detachCmd)
	addWorkloadFlags(detachCmd)
	addSidecarFlags(detachCmd)
}

func runDetach(cmd *cobra.Command, args []string) {

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
		context.Background(), ctrl.Log.WithName("detach"), cl, opts)

	result, err := reconciler.Detach()
	if err != nil {
		setupLog.Error(err, "detach failed",
			"completedSteps", attacherrors.CompletedStepsForError(err))
		os.Exit(exitCodeForError(err))
	}

	if result.Outcome == attachment.OutcomeSkipped {
		setupLog.Info("no sidecar attached, nothing changed")
		return
	}
	setupLog.Info("sidecar detached", "steps", result.CompletedSteps)
}
