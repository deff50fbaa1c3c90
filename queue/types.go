package queue

import (
	"fmt"
	"time"
)

// EventType mirrors configadmin's CM_UPDATED/CM_DELETED distinction (spec
// §4.F "Events") for the wire form republished over Redis pub/sub.
type EventType int

const (
	// CMUpdated corresponds to configadmin's CMUpdated event.
	CMUpdated EventType = iota
	// CMDeleted corresponds to configadmin's CMDeleted event.
	CMDeleted
)

// String renders the event type the way spec §6 names the topic suffix.
func (t EventType) String() string {
	switch t {
	case CMUpdated:
		return "CM_UPDATED"
	case CMDeleted:
		return "CM_DELETED"
	default:
		return "UNKNOWN"
	}
}

// ConfigurationEvent is the wire form of a configadmin event republished
// on the optional eventadmin bridge (spec §4.F, §6): a PID-scoped update
// or delete notification carrying the originating ConfigAdmin reference's
// canonical service properties.
type ConfigurationEvent struct {
	// Type distinguishes an update from a delete.
	Type EventType `json:"type"`

	// PID is the configuration's persistent identifier (the factory
	// instance PID, if this event concerns a factory configuration).
	PID string `json:"pid"`

	// FactoryPID is the factory identifier, empty for a singleton
	// configuration.
	FactoryPID string `json:"factory_pid,omitempty"`

	// ObjectClass is the objectclass property of the originating
	// ConfigurationAdmin service registration.
	ObjectClass []string `json:"object_class"`

	// ServiceID is the service.id of the originating ConfigurationAdmin
	// service registration.
	ServiceID int64 `json:"service_id"`

	// PublishedAt is the Unix timestamp in milliseconds when the event
	// was published.
	PublishedAt int64 `json:"published_at"`
}

// Topic returns the event-admin topic this event is published under,
// matching spec §6's "org/commontk/service/cm/ConfigurationEvent/<TYPE>"
// naming.
func (e ConfigurationEvent) Topic() string {
	return "org/commontk/service/cm/ConfigurationEvent/" + e.Type.String()
}

// Age returns the duration since this event was published.
func (e ConfigurationEvent) Age() time.Duration {
	if e.PublishedAt <= 0 {
		return 0
	}
	now := time.Now().UnixMilli()
	return time.Duration(now-e.PublishedAt) * time.Millisecond
}

// IsValid reports whether the event has every field required to publish
// or route it.
func (e ConfigurationEvent) IsValid() error {
	if e.PID == "" {
		return fmt.Errorf("pid is required")
	}
	if e.ServiceID <= 0 {
		return fmt.Errorf("service_id must be positive, got %d", e.ServiceID)
	}
	if e.PublishedAt <= 0 {
		return fmt.Errorf("published_at must be positive, got %d", e.PublishedAt)
	}
	return nil
}
