package container

import (
	"fmt"

	"github.com/authattach/authattach/pkg/proxy/container/defaults"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// ContainerConfig holds everything needed to render the oauth2-proxy
// sidecar container and its volumes for a given workload
type ContainerConfig struct {
	Name              string
	Image             string
	ListenPort        int32
	UpstreamPort      int32
	CredentialsSecret string
	ConfigMap         string
	ConfigVolume      string
	ConfigBasePath    string
	ConfigFileName    string
	ExtraArgs         []string
	Resources         corev1.ResourceRequirements
}

// UpstreamURL returns the address the sidecar proxies authenticated
// traffic to. The host is always the pod-local loopback: the sidecar
// and the application share a network namespace, which is what keeps
// the application port unreachable from outside the pod.
func (cc *ContainerConfig) UpstreamURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", cc.UpstreamPort)
}

func (cc *ContainerConfig) Container() corev1.Container {

	return corev1.Container{
		Name:  cc.Name,
		Image: cc.Image,
		Args: func() []string {
			args := []string{
				fmt.Sprintf("--config=%s/%s", cc.ConfigBasePath, cc.ConfigFileName),
			}
			if len(cc.ExtraArgs) > 0 {
				args = append(args, cc.ExtraArgs...)
			}
			return args
		}(),
		Env: []corev1.EnvVar{
			{
				Name:  defaults.EnvHTTPAddress,
				Value: fmt.Sprintf("0.0.0.0:%d", cc.ListenPort),
			},
			{
				Name:  defaults.EnvUpstreams,
				Value: cc.UpstreamURL(),
			},
			{
				Name:      defaults.EnvClientID,
				ValueFrom: secretKeyRef(cc.CredentialsSecret, defaults.ClientIDKey),
			},
			{
				Name:      defaults.EnvClientSecret,
				ValueFrom: secretKeyRef(cc.CredentialsSecret, defaults.ClientSecretKey),
			},
			{
				Name:      defaults.EnvCookieSecret,
				ValueFrom: secretKeyRef(cc.CredentialsSecret, defaults.CookieSecretKey),
			},
		},
		Resources: cc.Resources,
		Ports: []corev1.ContainerPort{
			{
				Name:          defaults.PortName,
				ContainerPort: cc.ListenPort,
				Protocol:      corev1.ProtocolTCP,
			},
		},
		VolumeMounts: []corev1.VolumeMount{
			{
				Name:      cc.ConfigVolume,
				ReadOnly:  true,
				MountPath: cc.ConfigBasePath,
			},
		},
		ReadinessProbe: &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{
					Path: defaults.ReadinessProbePath,
					Port: intstr.IntOrString{IntVal: cc.ListenPort},
				},
			},
			InitialDelaySeconds: defaults.ReadinessProbeInitialDelaySeconds,
			TimeoutSeconds:      defaults.ReadinessProbeTimeoutSeconds,
			PeriodSeconds:       defaults.ReadinessProbePeriodSeconds,
			SuccessThreshold:    defaults.ReadinessProbeSuccessThreshold,
			FailureThreshold:    defaults.ReadinessProbeFailureThreshold,
		},
		TerminationMessagePath:   corev1.TerminationMessagePathDefault,
		TerminationMessagePolicy: corev1.TerminationMessageReadFile,
		ImagePullPolicy:          corev1.PullIfNotPresent,
	}
}

func (cc *ContainerConfig) Volumes() []corev1.Volume {

	return []corev1.Volume{
		{
			Name: cc.ConfigVolume,
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{
						Name: cc.ConfigMap,
					},
				},
			},
		},
	}
}

func secretKeyRef(secret, key string) *corev1.EnvVarSource {
	return &corev1.EnvVarSource{
		SecretKeyRef: &corev1.SecretKeySelector{
			LocalObjectReference: corev1.LocalObjectReference{
				Name: secret,
			},
			Key: key,
		},
	}
}
