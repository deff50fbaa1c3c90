package configadmin

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// meterHooks wraps the optional otel/metric instruments configadmin
// reports against. The zero value's methods are all no-ops, so an Admin
// built without a Meter behaves exactly as one would without this file.
type meterHooks struct {
	updated metric.Int64Counter
	deleted metric.Int64Counter
}

// WithMeter attaches meter to a, registering configuration.updated and
// configuration.deleted counters. A nil meter is accepted and leaves a
// uninstrumented.
func (a *Admin) WithMeter(meter metric.Meter) error {
	if meter == nil {
		return nil
	}
	updated, err := meter.Int64Counter("configuration.updated")
	if err != nil {
		return err
	}
	deleted, err := meter.Int64Counter("configuration.deleted")
	if err != nil {
		return err
	}
	a.meter = meterHooks{updated: updated, deleted: deleted}
	return nil
}

func (m meterHooks) recordUpdated() {
	if m.updated != nil {
		m.updated.Add(context.Background(), 1)
	}
}

func (m meterHooks) recordDeleted() {
	if m.deleted != nil {
		m.deleted.Add(context.Background(), 1)
	}
}
