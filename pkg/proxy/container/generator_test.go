package container

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/authattach/authattach/pkg/proxy/container/defaults"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

func TestContainerConfig_Container(t *testing.T) {
	tests := []struct {
		name string
		cc   ContainerConfig
		want corev1.Container
	}{
		{
			name: "Generates an oauth2-proxy container for the given config",
			cc: ContainerConfig{
				Name:              "oauth2-proxy",
				Image:             "oauth2-proxy:test",
				ListenPort:        4180,
				UpstreamPort:      8080,
				CredentialsSecret: "app-oauth-secret",
				ConfigMap:         "proxy-configmap",
				ConfigVolume:      "config",
				ConfigBasePath:    "/config",
				ConfigFileName:    "proxy.cfg",
				ExtraArgs:         []string{"--some-arg", "some-value"},
				Resources:         corev1.ResourceRequirements{},
			},
			want: corev1.Container{
				Name:  "oauth2-proxy",
				Image: "oauth2-proxy:test",
				Args: []string{
					"--config=/config/proxy.cfg",
					"--some-arg",
					"some-value",
				},
				Env: []corev1.EnvVar{
					{Name: "OAUTH2_PROXY_HTTP_ADDRESS", Value: "0.0.0.0:4180"},
					{Name: "OAUTH2_PROXY_UPSTREAMS", Value: "http://127.0.0.1:8080"},
					{
						Name: "OAUTH2_PROXY_CLIENT_ID",
						ValueFrom: &corev1.EnvVarSource{
							SecretKeyRef: &corev1.SecretKeySelector{
								LocalObjectReference: corev1.LocalObjectReference{Name: "app-oauth-secret"},
								Key:                  "client-id",
							},
						},
					},
					{
						Name: "OAUTH2_PROXY_CLIENT_SECRET",
						ValueFrom: &corev1.EnvVarSource{
							SecretKeyRef: &corev1.SecretKeySelector{
								LocalObjectReference: corev1.LocalObjectReference{Name: "app-oauth-secret"},
								Key:                  "client-secret",
							},
						},
					},
					{
						Name: "OAUTH2_PROXY_COOKIE_SECRET",
						ValueFrom: &corev1.EnvVarSource{
							SecretKeyRef: &corev1.SecretKeySelector{
								LocalObjectReference: corev1.LocalObjectReference{Name: "app-oauth-secret"},
								Key:                  "cookie-secret",
							},
						},
					},
				},
				Ports: []corev1.ContainerPort{
					{
						Name:          "oauth2-proxy",
						ContainerPort: 4180,
						Protocol:      corev1.ProtocolTCP,
					},
				},
				VolumeMounts: []corev1.VolumeMount{
					{
						Name:      "config",
						ReadOnly:  true,
						MountPath: "/config",
					},
				},
				ReadinessProbe: &corev1.Probe{
					ProbeHandler: corev1.ProbeHandler{
						HTTPGet: &corev1.HTTPGetAction{
							Path: "/ping",
							Port: intstr.IntOrString{IntVal: 4180},
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
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			if got := tt.cc.Container(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ContainerConfig.Container() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContainerConfig_UpstreamURL(t *testing.T) {
	// the upstream host is always the pod-local loopback, whatever the port
	for _, port := range []int32{80, 1024, 3000, 8080, 9090, 65535} {
		cc := ContainerConfig{UpstreamPort: port}
		want := fmt.Sprintf("http://127.0.0.1:%d", port)
		if got := cc.UpstreamURL(); got != want {
			t.Errorf("ContainerConfig.UpstreamURL() = %v, want %v", got, want)
		}
	}
}

func TestContainerConfig_Volumes(t *testing.T) {
	tests := []struct {
		name string
		cc   ContainerConfig
		want []corev1.Volume
	}{
		{
			name: "Generates the config volume from the ConfigMap",
			cc: ContainerConfig{
				ConfigMap:    "proxy-configmap",
				ConfigVolume: "config",
			},
			want: []corev1.Volume{
				{
					Name: "config",
					VolumeSource: corev1.VolumeSource{
						ConfigMap: &corev1.ConfigMapVolumeSource{
							LocalObjectReference: corev1.LocalObjectReference{
								Name: "proxy-configmap",
							},
						},
					},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cc.Volumes(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ContainerConfig.Volumes() = %v, want %v", got, tt.want)
			}
		})
	}
}
