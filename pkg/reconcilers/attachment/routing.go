package attachment

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	gwapiv1 "sigs.k8s.io/gateway-api/apis/v1"
)

const managedByLabel = "app.kubernetes.io/managed-by"

// patchRouting points the hostname's routing rule at the sidecar port.
// Hostnames are the unique key: an existing route for the hostname is
// updated in place, otherwise a new one is created.
func (r *AttachmentReconciler) patchRouting() error {

	existing, err := findRouteForHostname(r.ctx, r.client, r.opts.Namespace, r.opts.Hostname)
	if err != nil {
		return err
	}

	if existing == nil {
		route := r.desiredRoute()
		if r.opts.DryRun {
			r.logger.Info("dry-run: would create HTTPRoute",
				"hostname", r.opts.Hostname, "backend", r.opts.Service, "port", r.cfg.ListenPort)
			return nil
		}
		if err := r.client.Create(r.ctx, route); err != nil {
			return err
		}
		r.logger.Info("HTTPRoute created", "hostname", r.opts.Hostname, "port", r.cfg.ListenPort)
		return nil
	}

	changed := redirectRoute(existing, r.opts.Service, r.cfg.ListenPort, r.desiredRoute().Spec.Rules)
	if !changed {
		r.logger.V(1).Info("HTTPRoute already targets the sidecar port", "hostname", r.opts.Hostname)
		return nil
	}

	if r.opts.DryRun {
		r.logger.Info("dry-run: would redirect HTTPRoute to sidecar port",
			"hostname", r.opts.Hostname, "port", r.cfg.ListenPort)
		return nil
	}

	if err := r.client.Update(r.ctx, existing); err != nil {
		return err
	}
	r.logger.Info("HTTPRoute redirected to sidecar port", "hostname", r.opts.Hostname, "port", r.cfg.ListenPort)
	return nil
}

// desiredRoute builds the routing rule for the hostname: all paths of
// the hostname forwarded to the sidecar port of the workload's Service
func (r *AttachmentReconciler) desiredRoute() *gwapiv1.HTTPRoute {

	parent := gwapiv1.ParentReference{
		Name: gwapiv1.ObjectName(r.opts.Gateway),
	}
	if r.opts.GatewayNamespace != "" {
		parent.Namespace = ptr.To(gwapiv1.Namespace(r.opts.GatewayNamespace))
	}

	pathType := gwapiv1.PathMatchPathPrefix

	return &gwapiv1.HTTPRoute{
		ObjectMeta: metav1.ObjectMeta{
			Name:      r.opts.Name,
			Namespace: r.opts.Namespace,
			Labels: map[string]string{
				managedByLabel: "authattach",
			},
		},
		Spec: gwapiv1.HTTPRouteSpec{
			CommonRouteSpec: gwapiv1.CommonRouteSpec{
				ParentRefs: []gwapiv1.ParentReference{parent},
			},
			Hostnames: []gwapiv1.Hostname{gwapiv1.Hostname(r.opts.Hostname)},
			Rules: []gwapiv1.HTTPRouteRule{
				{
					Matches: []gwapiv1.HTTPRouteMatch{
						{
							Path: &gwapiv1.HTTPPathMatch{
								Type:  &pathType,
								Value: ptr.To("/"),
							},
						},
					},
					BackendRefs: []gwapiv1.HTTPBackendRef{
						routeBackend(r.opts.Service, r.cfg.ListenPort),
					},
				},
			},
		},
	}
}

// findRouteForHostname returns the HTTPRoute in the namespace serving
// the hostname, nil if there is none
func findRouteForHostname(ctx context.Context, c client.Client, namespace, hostname string) (*gwapiv1.HTTPRoute, error) {

	routeList := &gwapiv1.HTTPRouteList{}
	if err := c.List(ctx, routeList, client.InNamespace(namespace)); err != nil {
		return nil, err
	}

	for i := range routeList.Items {
		for _, h := range routeList.Items[i].Spec.Hostnames {
			if string(h) == hostname {
				return &routeList.Items[i], nil
			}
		}
	}

	return nil, nil
}

// redirectRoute rewrites the destination port of every backend of the
// route that references the Service. If the route does not reference
// the Service at all its rules are replaced wholesale with the desired
// ones, but only when the route serves no other hostname: rules apply
// to every hostname of a route, so rewriting a shared route would
// hijack traffic this hostname does not own. Returns whether the route
// was modified.
func redirectRoute(route *gwapiv1.HTTPRoute, service string, port int32, desiredRules []gwapiv1.HTTPRouteRule) bool {

	changed := false
	matched := false

	for i := range route.Spec.Rules {
		for j := range route.Spec.Rules[i].BackendRefs {
			backend := &route.Spec.Rules[i].BackendRefs[j]
			if string(backend.Name) != service {
				continue
			}
			matched = true
			if backend.Port == nil || *backend.Port != gwapiv1.PortNumber(port) {
				backend.Port = ptr.To(gwapiv1.PortNumber(port))
				changed = true
			}
		}
	}

	if !matched {
		if len(route.Spec.Hostnames) > 1 {
			return false
		}
		route.Spec.Rules = desiredRules
		changed = true
	}

	return changed
}

func routeBackend(service string, port int32) gwapiv1.HTTPBackendRef {
	return gwapiv1.HTTPBackendRef{
		BackendRef: gwapiv1.BackendRef{
			BackendObjectReference: gwapiv1.BackendObjectReference{
				Name: gwapiv1.ObjectName(service),
				Port: ptr.To(gwapiv1.PortNumber(port)),
			},
		},
	}
}
