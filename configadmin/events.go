package configadmin

import (
	"context"
	"sync"
	"time"

	"github.com/corectk/pluginfw/queue"
)

// EventType distinguishes the two notifications configadmin raises,
// grounded on ctkCMEventDispatcher's CM_UPDATED/CM_DELETED events (spec
// §4.F "Events").
type EventType int

const (
	// CMUpdated fires after a configuration's properties are saved,
	// whether the PID previously existed or not.
	CMUpdated EventType = iota
	// CMDeleted fires after a configuration is removed.
	CMDeleted
)

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

// Event is delivered to every registered ConfigurationListener whenever a
// configuration changes.
type Event struct {
	Type       EventType
	PID        string
	FactoryPID string
}

// ConfigurationListener observes configadmin's CM_UPDATED/CM_DELETED
// events synchronously, the same dispatch discipline the service
// registry applies to ServiceListener (spec §9: never hold a lock across
// a callback).
type ConfigurationListener interface {
	ConfigurationEvent(evt Event)
}

type listenerSet struct {
	mu   sync.RWMutex
	list []ConfigurationListener
}

func (s *listenerSet) add(l ConfigurationListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, l)
}

func (s *listenerSet) remove(l ConfigurationListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.list {
		if e == l {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

func (s *listenerSet) snapshot() []ConfigurationListener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ConfigurationListener, len(s.list))
	copy(out, s.list)
	return out
}

// notify dispatches evt to every registered listener and, if a bridge was
// attached via SetBridge, republishes it onto that bridge's pub/sub
// channel too. Listener panics are isolated.
func (a *Admin) notify(evt Event) {
	for _, l := range a.listeners.snapshot() {
		a.callListener(l, evt)
	}

	bridge := a.bridgeClient()
	if bridge == nil {
		return
	}
	wireType := queue.CMUpdated
	if evt.Type == CMDeleted {
		wireType = queue.CMDeleted
	}
	wireEvt := queue.ConfigurationEvent{
		Type:        wireType,
		PID:         evt.PID,
		FactoryPID:  evt.FactoryPID,
		ObjectClass: []string{"ConfigurationAdmin"},
		ServiceID:   a.selfRef.ServiceID(),
		PublishedAt: time.Now().UnixMilli(),
	}
	go func() {
		_ = bridge.Publish(context.Background(), wireEvt)
	}()
}

func (a *Admin) callListener(l ConfigurationListener, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("configadmin: configuration listener panicked", "pid", evt.PID, "panic", r)
		}
	}()
	l.ConfigurationEvent(evt)
}

func (a *Admin) bridgeClient() queue.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.bridge
}

// SetBridge attaches an optional Client that every subsequent
// CM_UPDATED/CM_DELETED event is republished to, for deployments running
// more than one framework instance against a shared configuration store.
// Passing nil detaches any previously attached bridge.
func (a *Admin) SetBridge(c queue.Client) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bridge = c
}

// AddConfigurationListener registers l to receive future configuration
// events.
func (a *Admin) AddConfigurationListener(l ConfigurationListener) {
	a.listeners.add(l)
}

// RemoveConfigurationListener stops delivering events to l.
func (a *Admin) RemoveConfigurationListener(l ConfigurationListener) {
	a.listeners.remove(l)
}
