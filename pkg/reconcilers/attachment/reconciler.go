package attachment

import (
	"context"
	"fmt"
	"time"

	"github.com/authattach/authattach/pkg/proxy/container"
	"github.com/authattach/authattach/pkg/proxy/container/defaults"
	"github.com/authattach/authattach/pkg/reconcilers/attachment/errors"
	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Step names one state of the attachment run
type Step string

const (
	StepPreflight      Step = "Preflight"
	StepPatchContainer Step = "PatchContainer"
	StepPatchService   Step = "PatchService"
	StepPatchRouting   Step = "PatchRouting"
	StepAwaitRollout   Step = "AwaitRollout"
)

// Outcome is the terminal state of a run
type Outcome string

const (
	// OutcomeDone means all patches were applied
	OutcomeDone Outcome = "Done"
	// OutcomeSkipped means the workload was already attached and
	// nothing was mutated
	OutcomeSkipped Outcome = "Skipped"
)

// Result reports the terminal state of a run and the steps that
// completed, so a caller can tell "nothing changed" from "done" and
// retry safely after a partial failure
type Result struct {
	Outcome        Outcome
	CompletedSteps []Step
}

// AttachmentReconciler drives a single workload from unauthenticated
// to authenticated: sidecar container on the Deployment, sidecar port
// on the Service, hostname route pointing at that port. All cluster
// state is read at the start of the run and patched step by step,
// every step being idempotent.
type AttachmentReconciler struct {
	ctx    context.Context
	logger logr.Logger
	client client.Client
	opts   Options
	cfg    container.ContainerConfig
}

// NewAttachmentReconciler returns a new AttachmentReconciler for the
// given workload options
func NewAttachmentReconciler(ctx context.Context, logger logr.Logger, client client.Client, opts Options) *AttachmentReconciler {
	opts.Default()
	return &AttachmentReconciler{
		ctx:    ctx,
		logger: logger,
		client: client,
		opts:   opts,
		cfg: container.ContainerConfig{
			Name:              defaults.ContainerName,
			Image:             opts.SidecarImage,
			ListenPort:        opts.SidecarPort,
			UpstreamPort:      opts.AppPort,
			CredentialsSecret: opts.CredentialsSecret,
			ConfigMap:         opts.ConfigMap,
			ConfigVolume:      defaults.ConfigVolume,
			ConfigBasePath:    defaults.ConfigBasePath,
			ConfigFileName:    defaults.ConfigFileName,
			ExtraArgs:         opts.ExtraArgs,
		},
	}
}

// Reconcile runs the attachment state machine:
//
//	Start → Preflight → {Skip|Fail|Proceed} → PatchContainer →
//	PatchService → PatchRouting → AwaitRollout → Done
//
// Preflight failures mutate nothing. Once patching has begun, a
// failing step returns a PartialApply error carrying the completed
// steps; a blind retry of the whole run is always safe. An
// AwaitRollout timeout is reported but the applied patches stand.
func (r *AttachmentReconciler) Reconcile() (Result, error) {

	completed := []Step{}

	pf, err := r.preflight()
	if err != nil {
		if errors.IsAlreadyPresent(err) {
			r.logger.Info("sidecar already attached, skipping",
				"Deployment", fmt.Sprintf("%s/%s", r.opts.Namespace, r.opts.Name))
			return Result{Outcome: OutcomeSkipped, CompletedSteps: completed}, nil
		}
		return Result{CompletedSteps: completed}, err
	}
	completed = append(completed, StepPreflight)

	if err := r.patchContainer(pf.deployment); err != nil {
		return Result{CompletedSteps: completed}, partialApply(StepPatchContainer, err, completed)
	}
	completed = append(completed, StepPatchContainer)

	if err := r.patchService(); err != nil {
		// a port conflict surfacing after preflight cannot succeed on
		// retry, so it keeps its own reason instead of PartialApply
		if errors.IsPortConflict(err) {
			return Result{CompletedSteps: completed}, err
		}
		return Result{CompletedSteps: completed}, partialApply(StepPatchService, err, completed)
	}
	completed = append(completed, StepPatchService)

	if err := r.patchRouting(); err != nil {
		return Result{CompletedSteps: completed}, partialApply(StepPatchRouting, err, completed)
	}
	completed = append(completed, StepPatchRouting)

	if err := r.awaitRollout(); err != nil {
		return Result{CompletedSteps: completed}, err
	}
	completed = append(completed, StepAwaitRollout)

	return Result{Outcome: OutcomeDone, CompletedSteps: completed}, nil
}

// awaitRollout polls the Deployment until the whole replica set runs
// the new pod template. This is the only blocking operation of a run.
// Aborting it leaves the applied patches in place, there is no
// compensating rollback.
func (r *AttachmentReconciler) awaitRollout() error {

	if r.opts.DryRun || r.opts.RolloutTimeout.Duration <= 0 {
		r.logger.V(1).Info("rollout wait disabled")
		return nil
	}

	key := types.NamespacedName{Name: r.opts.Name, Namespace: r.opts.Namespace}

	err := wait.PollUntilContextTimeout(r.ctx, 2*time.Second, r.opts.RolloutTimeout.Duration, true,
		func(ctx context.Context) (bool, error) {
			d := &appsv1.Deployment{}
			if err := r.client.Get(ctx, key, d); err != nil {
				return false, err
			}
			return deploymentReady(d), nil
		})

	if err != nil {
		if wait.Interrupted(err) {
			return errors.New(errors.RolloutTimeoutError, string(StepAwaitRollout),
				fmt.Sprintf("deployment '%s/%s' did not become ready within %s, patches remain applied",
					r.opts.Namespace, r.opts.Name, r.opts.RolloutTimeout.Duration))
		}
		return err
	}

	return nil
}

func deploymentReady(d *appsv1.Deployment) bool {
	replicas := int32(1)
	if d.Spec.Replicas != nil {
		replicas = *d.Spec.Replicas
	}
	return d.Status.ObservedGeneration >= d.Generation &&
		d.Status.UpdatedReplicas == replicas &&
		d.Status.ReadyReplicas == replicas &&
		d.Status.AvailableReplicas == replicas
}

func partialApply(step Step, err error, completed []Step) error {
	return errors.NewPartialApply(string(step), err.Error(), stepNames(completed))
}

func stepNames(steps []Step) []string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, string(s))
	}
	return names
}
