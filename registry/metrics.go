package registry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// meterHooks wraps the optional otel/metric instruments the registry
// reports against. The zero value's methods are all no-ops, so a Registry
// built without a Meter behaves exactly as one would without this file.
type meterHooks struct {
	registered   metric.Int64Counter
	unregistered metric.Int64Counter
	dispatched   metric.Int64Counter
}

// WithMeter attaches meter to r, registering the counters described in
// SPEC_FULL.md's registry EXPANSION: services.registered,
// services.unregistered, and events.dispatched. A nil meter is accepted
// and leaves r uninstrumented.
func (r *Registry) WithMeter(meter metric.Meter) error {
	if meter == nil {
		return nil
	}
	registered, err := meter.Int64Counter("services.registered")
	if err != nil {
		return err
	}
	unregistered, err := meter.Int64Counter("services.unregistered")
	if err != nil {
		return err
	}
	dispatched, err := meter.Int64Counter("events.dispatched")
	if err != nil {
		return err
	}
	r.meter = meterHooks{registered: registered, unregistered: unregistered, dispatched: dispatched}
	return nil
}

func (m meterHooks) recordRegistered() {
	if m.registered != nil {
		m.registered.Add(context.Background(), 1)
	}
}

func (m meterHooks) recordUnregistered() {
	if m.unregistered != nil {
		m.unregistered.Add(context.Background(), 1)
	}
}

func (m meterHooks) recordDispatched() {
	if m.dispatched != nil {
		m.dispatched.Add(context.Background(), 1)
	}
}
