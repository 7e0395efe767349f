package attachment

import (
	"fmt"

	"github.com/authattach/authattach/pkg/proxy/container/defaults"
	"github.com/authattach/authattach/pkg/reconcilers/attachment/errors"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// patchService ensures the Service exposes the sidecar's listen port
// without touching any pre-existing port. The Service is re-read so the
// patch works from fresh state, not the preflight snapshot.
func (r *AttachmentReconciler) patchService() error {

	service := &corev1.Service{}
	if err := r.client.Get(r.ctx, types.NamespacedName{Name: r.opts.Service, Namespace: r.opts.Namespace}, service); err != nil {
		return err
	}

	ports, changed, err := ensureSidecarPort(service.Spec.Ports, r.cfg.ListenPort)
	if err != nil {
		// a conflict here means the Service changed since preflight.
		// The error keeps its PortConflict reason, retrying cannot
		// resolve it.
		return err
	}

	if !changed {
		r.logger.V(1).Info("sidecar port already exposed", "port", r.cfg.ListenPort)
		return nil
	}

	if r.opts.DryRun {
		r.logger.Info("dry-run: would expose sidecar port on Service",
			"service", service.Name, "port", r.cfg.ListenPort)
		return nil
	}

	service.Spec.Ports = ports
	if err := r.client.Update(r.ctx, service); err != nil {
		return err
	}
	r.logger.Info("Service patched with sidecar port", "port", r.cfg.ListenPort)
	return nil
}

// ensureSidecarPort merges the sidecar port into a Service port set.
// The port is added if absent and the set is returned untouched if an
// identical binding is already there. A pre-existing binding of the
// same port number to a different target is a conflict: overwriting it
// would clobber an unrelated listener, so a PortConflict error is
// returned instead.
func ensureSidecarPort(ports []corev1.ServicePort, port int32) ([]corev1.ServicePort, bool, error) {

	for _, p := range ports {
		if p.Port != port {
			continue
		}
		if portTarget(p) != port {
			return nil, false, errors.New(errors.PortConflictError, string(StepPreflight),
				fmt.Sprintf("service port %d is already bound to target '%s'", port, p.TargetPort.String()))
		}
		return ports, false, nil
	}

	ports = append(ports, corev1.ServicePort{
		Name:       defaults.PortName,
		Port:       port,
		TargetPort: intstr.FromInt32(port),
		Protocol:   corev1.ProtocolTCP,
	})
	return ports, true, nil
}

// removeSidecarPort drops the sidecar port from the set, leaving all
// other ports untouched
func removeSidecarPort(ports []corev1.ServicePort, port int32) ([]corev1.ServicePort, bool) {
	for i, p := range ports {
		if p.Port == port && portTarget(p) == port {
			return append(ports[:i:i], ports[i+1:]...), true
		}
	}
	return ports, false
}

// portTarget resolves the effective numeric target of a Service port.
// An unset target defaults to the port number itself. Named targets
// can never match the sidecar's numeric container port.
func portTarget(p corev1.ServicePort) int32 {
	if p.TargetPort.Type == intstr.Int {
		if p.TargetPort.IntVal == 0 {
			return p.Port
		}
		return p.TargetPort.IntVal
	}
	return -1
}
