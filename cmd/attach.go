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

var attachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Attach the authentication sidecar to a workload",
	Long: "Transforms an existing Deployment/Service/route triple into an authenticated one: " +
		"adds the oauth2-proxy sidecar to the Deployment, exposes its listen port on the Service " +
		"and points the hostname's routing rule at that port. Re-running against an already " +
		"attached workload is a no-op.",
	Run: runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
	addWorkloadFlags(attachCmd)
	addSidecarFlags(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) {

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
		context.Background(), ctrl.Log.WithName("attach"), cl, opts)

	result, err := reconciler.Reconcile()
	if err != nil {
		setupLog.Error(err, "attach failed",
			"completedSteps", attacherrors.CompletedStepsForError(err))
		os.Exit(exitCodeForError(err))
	}

	if result.Outcome == attachment.OutcomeSkipped {
		setupLog.Info("sidecar already attached, nothing changed")
		return
	}
	setupLog.Info("sidecar attached", "steps", result.CompletedSteps)
}
