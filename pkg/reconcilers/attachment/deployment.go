package attachment

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
)

// patchContainer ensures the sidecar container and its config volume
// are present in the pod template. The template change is what
// triggers the rolling restart of the workload's pods.
func (r *AttachmentReconciler) patchContainer(deployment *appsv1.Deployment) error {

	desired := r.cfg.Container()

	changed := ensureContainer(&deployment.Spec.Template.Spec, desired)
	for _, volume := range r.cfg.Volumes() {
		if ensureVolume(&deployment.Spec.Template.Spec, volume) {
			changed = true
		}
	}

	if !changed {
		r.logger.V(1).Info("sidecar container already up to date")
		return nil
	}

	if r.opts.DryRun {
		r.logger.Info("dry-run: would update Deployment with sidecar container",
			"container", desired.Name, "image", desired.Image, "upstream", r.cfg.UpstreamURL())
		return nil
	}

	if err := r.client.Update(r.ctx, deployment); err != nil {
		return err
	}
	r.logger.Info("Deployment patched with sidecar container", "upstream", r.cfg.UpstreamURL())
	return nil
}

// ensureContainer adds the desired container to the pod spec or
// replaces it in place if one with the same name diverged. Returns
// whether the spec was modified.
func ensureContainer(spec *corev1.PodSpec, desired corev1.Container) bool {
	if idx := containerIndex(spec.Containers, desired.Name); idx >= 0 {
		if equality.Semantic.DeepEqual(spec.Containers[idx], desired) {
			return false
		}
		spec.Containers[idx] = desired
		return true
	}
	spec.Containers = append(spec.Containers, desired)
	return true
}

func ensureVolume(spec *corev1.PodSpec, desired corev1.Volume) bool {
	if idx := volumeIndex(spec.Volumes, desired.Name); idx >= 0 {
		if equality.Semantic.DeepEqual(spec.Volumes[idx], desired) {
			return false
		}
		spec.Volumes[idx] = desired
		return true
	}
	spec.Volumes = append(spec.Volumes, desired)
	return true
}

func removeContainer(spec *corev1.PodSpec, name string) bool {
	idx := containerIndex(spec.Containers, name)
	if idx < 0 {
		return false
	}
	spec.Containers = append(spec.Containers[:idx], spec.Containers[idx+1:]...)
	return true
}

func removeVolume(spec *corev1.PodSpec, name string) bool {
	idx := volumeIndex(spec.Volumes, name)
	if idx < 0 {
		return false
	}
	spec.Volumes = append(spec.Volumes[:idx], spec.Volumes[idx+1:]...)
	return true
}

func containerIndex(containers []corev1.Container, name string) int {
	for i := range containers {
		if containers[i].Name == name {
			return i
		}
	}
	return -1
}

func volumeIndex(volumes []corev1.Volume, name string) int {
	for i := range volumes {
		if volumes[i].Name == name {
			return i
		}
	}
	return -1
}
