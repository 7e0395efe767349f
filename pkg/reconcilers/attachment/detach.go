package attachment

import (
	"fmt"

	"github.com/authattach/authattach/pkg/reconcilers/attachment/errors"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	gwapiv1 "sigs.k8s.io/gateway-api/apis/v1"
)

// Detach is the inverse run: remove the sidecar container and its
// volume from the Deployment, drop the sidecar port from the Service
// and point the hostname's route back at the application port. A
// workload without the sidecar is an idempotent skip. Missing Service
// or route are treated as already detached.
func (r *AttachmentReconciler) Detach() (Result, error) {

	completed := []Step{}

	deployment := &appsv1.Deployment{}
	err := r.client.Get(r.ctx, types.NamespacedName{Name: r.opts.Name, Namespace: r.opts.Namespace}, deployment)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return Result{}, errors.New(errors.NotFoundError, string(StepPreflight),
				fmt.Sprintf("deployment '%s/%s' not found", r.opts.Namespace, r.opts.Name))
		}
		return Result{}, err
	}

	if containerIndex(deployment.Spec.Template.Spec.Containers, r.cfg.Name) < 0 {
		r.logger.Info("no sidecar attached, skipping",
			"Deployment", fmt.Sprintf("%s/%s", r.opts.Namespace, r.opts.Name))
		return Result{Outcome: OutcomeSkipped}, nil
	}
	completed = append(completed, StepPreflight)

	removeContainer(&deployment.Spec.Template.Spec, r.cfg.Name)
	removeVolume(&deployment.Spec.Template.Spec, r.cfg.ConfigVolume)
	if r.opts.DryRun {
		r.logger.Info("dry-run: would remove sidecar container from Deployment", "container", r.cfg.Name)
	} else if err := r.client.Update(r.ctx, deployment); err != nil {
		return Result{CompletedSteps: completed}, partialApply(StepPatchContainer, err, completed)
	}
	completed = append(completed, StepPatchContainer)

	if err := r.detachService(); err != nil {
		return Result{CompletedSteps: completed}, partialApply(StepPatchService, err, completed)
	}
	completed = append(completed, StepPatchService)

	if err := r.detachRouting(); err != nil {
		return Result{CompletedSteps: completed}, partialApply(StepPatchRouting, err, completed)
	}
	completed = append(completed, StepPatchRouting)

	if err := r.awaitRollout(); err != nil {
		return Result{CompletedSteps: completed}, err
	}
	completed = append(completed, StepAwaitRollout)

	return Result{Outcome: OutcomeDone, CompletedSteps: completed}, nil
}

func (r *AttachmentReconciler) detachService() error {

	service := &corev1.Service{}
	err := r.client.Get(r.ctx, types.NamespacedName{Name: r.opts.Service, Namespace: r.opts.Namespace}, service)
	if err != nil {
		if apierrors.IsNotFound(err) {
			r.logger.V(1).Info("service not found, nothing to detach", "service", r.opts.Service)
			return nil
		}
		return err
	}

	ports, changed := removeSidecarPort(service.Spec.Ports, r.cfg.ListenPort)
	if !changed {
		return nil
	}
	if r.opts.DryRun {
		r.logger.Info("dry-run: would drop sidecar port from Service", "port", r.cfg.ListenPort)
		return nil
	}

	service.Spec.Ports = ports
	if err := r.client.Update(r.ctx, service); err != nil {
		return err
	}
	r.logger.Info("sidecar port dropped from Service", "port", r.cfg.ListenPort)
	return nil
}

func (r *AttachmentReconciler) detachRouting() error {

	route, err := findRouteForHostname(r.ctx, r.client, r.opts.Namespace, r.opts.Hostname)
	if err != nil {
		return err
	}
	if route == nil {
		r.logger.V(1).Info("no route for hostname, nothing to detach", "hostname", r.opts.Hostname)
		return nil
	}

	// point the hostname back at the application port
	changed := redirectRoute(route, r.opts.Service, r.opts.AppPort, r.detachedRules())
	if !changed {
		return nil
	}
	if r.opts.DryRun {
		r.logger.Info("dry-run: would redirect HTTPRoute back to app port",
			"hostname", r.opts.Hostname, "port", r.opts.AppPort)
		return nil
	}

	if err := r.client.Update(r.ctx, route); err != nil {
		return err
	}
	r.logger.Info("HTTPRoute redirected back to app port", "hostname", r.opts.Hostname, "port", r.opts.AppPort)
	return nil
}

// detachedRules are the hostname's rules as they looked before
// attachment: every path forwarded straight to the application port
func (r *AttachmentReconciler) detachedRules() []gwapiv1.HTTPRouteRule {
	rules := r.desiredRoute().Spec.Rules
	for i := range rules {
		rules[i].BackendRefs = []gwapiv1.HTTPBackendRef{routeBackend(r.opts.Service, r.opts.AppPort)}
	}
	return rules
}
