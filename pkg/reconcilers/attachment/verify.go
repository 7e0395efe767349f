package attachment

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
)

// VerifyReport holds the read-only attachment checks for a workload
type VerifyReport struct {
	// SidecarAttached is true when the Deployment's pod template
	// carries the sidecar container
	SidecarAttached bool
	// ServicePortExposed is true when the Service exposes the
	// sidecar's listen port
	ServicePortExposed bool
	// RouteTargetsSidecar is true when the hostname's route points
	// at the sidecar port of the Service
	RouteTargetsSidecar bool
}

// Attached is true only when every check passed
func (v VerifyReport) Attached() bool {
	return v.SidecarAttached && v.ServicePortExposed && v.RouteTargetsSidecar
}

// Verify inspects the cluster without mutating anything and reports
// which parts of the attachment are in place. Missing objects count as
// failed checks, only unexpected read errors are returned.
func (r *AttachmentReconciler) Verify() (VerifyReport, error) {

	report := VerifyReport{}

	deployment := &appsv1.Deployment{}
	err := r.client.Get(r.ctx, types.NamespacedName{Name: r.opts.Name, Namespace: r.opts.Namespace}, deployment)
	if err != nil && !apierrors.IsNotFound(err) {
		return report, err
	}
	if err == nil {
		report.SidecarAttached = containerIndex(deployment.Spec.Template.Spec.Containers, r.cfg.Name) >= 0
	}

	service := &corev1.Service{}
	err = r.client.Get(r.ctx, types.NamespacedName{Name: r.opts.Service, Namespace: r.opts.Namespace}, service)
	if err != nil && !apierrors.IsNotFound(err) {
		return report, err
	}
	if err == nil {
		for _, p := range service.Spec.Ports {
			if p.Port == r.cfg.ListenPort && portTarget(p) == r.cfg.ListenPort {
				report.ServicePortExposed = true
				break
			}
		}
	}

	route, err := findRouteForHostname(r.ctx, r.client, r.opts.Namespace, r.opts.Hostname)
	if err != nil {
		return report, err
	}
	if route != nil {
		for _, rule := range route.Spec.Rules {
			for _, backend := range rule.BackendRefs {
				if string(backend.Name) == r.opts.Service &&
					backend.Port != nil && int32(*backend.Port) == r.cfg.ListenPort {
					report.RouteTargetsSidecar = true
				}
			}
		}
	}

	return report, nil
}
