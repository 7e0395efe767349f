package attachment

import (
	"context"
	"testing"

	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

func TestAttachmentReconciler_Verify(t *testing.T) {

	t.Run("Reports a fully attached workload", func(t *testing.T) {
		cl := fake.NewClientBuilder().WithScheme(testScheme(t)).
			WithObjects(testDeployment(), testService(), testSecret()).Build()

		r := NewAttachmentReconciler(context.TODO(), logf.Log.WithName("test"), cl, testOptions())
		if _, err := r.Reconcile(); err != nil {
			t.Fatal(err)
		}

		report, err := r.Verify()
		if err != nil {
			t.Errorf("AttachmentReconciler.Verify() error = %v", err)
			return
		}
		if !report.Attached() {
			t.Errorf("AttachmentReconciler.Verify() = %+v, want all checks true", report)
		}
	})

	t.Run("Reports an unattached workload", func(t *testing.T) {
		cl := fake.NewClientBuilder().WithScheme(testScheme(t)).
			WithObjects(testDeployment(), testService(), testSecret()).Build()

		r := NewAttachmentReconciler(context.TODO(), logf.Log.WithName("test"), cl, testOptions())
		report, err := r.Verify()
		if err != nil {
			t.Errorf("AttachmentReconciler.Verify() error = %v", err)
			return
		}
		if report.Attached() {
			t.Errorf("AttachmentReconciler.Verify() = %+v, want checks false", report)
		}
		if report.SidecarAttached || report.ServicePortExposed || report.RouteTargetsSidecar {
			t.Errorf("AttachmentReconciler.Verify() = %+v, want every check false", report)
		}
	})

	t.Run("Missing objects count as failed checks, not errors", func(t *testing.T) {
		cl := fake.NewClientBuilder().WithScheme(testScheme(t)).Build()

		r := NewAttachmentReconciler(context.TODO(), logf.Log.WithName("test"), cl, testOptions())
		report, err := r.Verify()
		if err != nil {
			t.Errorf("AttachmentReconciler.Verify() error = %v", err)
			return
		}
		if report.Attached() {
			t.Errorf("AttachmentReconciler.Verify() = %+v, want checks false", report)
		}
	})
}
