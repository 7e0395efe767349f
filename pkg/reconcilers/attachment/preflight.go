package attachment

import (
	"fmt"

	"github.com/authattach/authattach/pkg/reconcilers/attachment/errors"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
)

// preflightResult carries the Deployment read during preflight so the
// container patch works from the observed state
type preflightResult struct {
	deployment *appsv1.Deployment
}

// preflight validates every precondition before anything is mutated:
// the Deployment exists, the sidecar is not already attached, the
// credentials Secret exists and the Service does not bind the sidecar
// port to something else. Checks run in that order and fail closed.
func (r *AttachmentReconciler) preflight() (*preflightResult, error) {

	deployment := &appsv1.Deployment{}
	err := r.client.Get(r.ctx, types.NamespacedName{Name: r.opts.Name, Namespace: r.opts.Namespace}, deployment)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, errors.New(errors.NotFoundError, string(StepPreflight),
				fmt.Sprintf("deployment '%s/%s' not found", r.opts.Namespace, r.opts.Name))
		}
		return nil, err
	}

	if containerIndex(deployment.Spec.Template.Spec.Containers, r.cfg.Name) >= 0 {
		return nil, errors.New(errors.AlreadyPresentError, string(StepPreflight),
			fmt.Sprintf("deployment '%s/%s' already has a '%s' container", r.opts.Namespace, r.opts.Name, r.cfg.Name))
	}

	secret := &corev1.Secret{}
	err = r.client.Get(r.ctx, types.NamespacedName{Name: r.opts.CredentialsSecret, Namespace: r.opts.Namespace}, secret)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, errors.New(errors.MissingCredentialsError, string(StepPreflight),
				fmt.Sprintf("credentials secret '%s/%s' not found", r.opts.Namespace, r.opts.CredentialsSecret))
		}
		return nil, err
	}

	service := &corev1.Service{}
	err = r.client.Get(r.ctx, types.NamespacedName{Name: r.opts.Service, Namespace: r.opts.Namespace}, service)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, errors.New(errors.NotFoundError, string(StepPreflight),
				fmt.Sprintf("service '%s/%s' not found", r.opts.Namespace, r.opts.Service))
		}
		return nil, err
	}

	// a port conflict is fatal and must be detected before the first
	// write, otherwise the sequence would stop half-applied on a
	// condition the user has to resolve by hand
	if _, _, err := ensureSidecarPort(service.Spec.Ports, r.cfg.ListenPort); err != nil {
		return nil, err
	}

	return &preflightResult{deployment: deployment}, nil
}
