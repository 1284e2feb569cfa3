package vismatch

import (
	"context"

	"github.com/hupe1980/vismatch/model"
)

// EnrollmentObserver is notified after an image or keyframe is enrolled.
//
// Observers see a read-only snapshot whose slices are shared with the
// registry; they must not modify it and must copy what they keep. Observers
// run synchronously after the registry has been updated and cannot fail the
// enrollment.
type EnrollmentObserver interface {
	ObserveEnrollment(ctx context.Context, refset model.Refset)
}

// NoopObserver ignores enrollments.
type NoopObserver struct{}

// ObserveEnrollment implements EnrollmentObserver.
func (NoopObserver) ObserveEnrollment(context.Context, model.Refset) {}

// ObserverFunc adapts a function to EnrollmentObserver.
type ObserverFunc func(ctx context.Context, refset model.Refset)

// ObserveEnrollment implements EnrollmentObserver.
func (f ObserverFunc) ObserveEnrollment(ctx context.Context, refset model.Refset) { f(ctx, refset) }
