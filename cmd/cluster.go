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
	attacherrors "github.com/authattach/authattach/pkg/reconcilers/attachment/errors"
	apimachineryruntime "k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/config"
	gwapiv1 "sigs.k8s.io/gateway-api/apis/v1"
)

// Exit codes of the CLI
const (
	// ExitOK, the run succeeded or was an idempotent no-op
	ExitOK int = 0
	// ExitPreflightFailure, nothing was mutated, fix the input and re-run
	ExitPreflightFailure int = 1
	// ExitPartialApply, some patches were applied, a blind retry is safe
	ExitPartialApply int = 2
	// ExitRolloutTimeout, patches applied but pods not yet confirmed ready
	ExitRolloutTimeout int = 3
)

var scheme = apimachineryruntime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(gwapiv1.Install(scheme))
}

func newClusterClient() (client.Client, error) {

	var cfg *rest.Config
	var err error

	if kubeconfig != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		cfg, err = config.GetConfig()
	}
	if err != nil {
		return nil, err
	}

	return client.New(cfg, client.Options{Scheme: scheme})
}

func exitCodeForError(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case attacherrors.IsPartialApply(err):
		return ExitPartialApply
	case attacherrors.IsRolloutTimeout(err):
		return ExitRolloutTimeout
	default:
		return ExitPreflightFailure
	}
}
