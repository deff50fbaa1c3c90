// Package tracker implements the Service Tracker component (spec §4.E): a
// helper that simplifies consuming services from a registry.Registry by
// handling all the bookkeeping of listening for ServiceEvents and
// getting/ungetting services.
//
// Grounded on ctkServiceTracker.h/.cpp and ctkTrackedService.cpp
// (original_source): a tracker is opened against a class name, optionally
// narrowed by a filter, and optionally customizes which object is actually
// tracked for each matching reference via a Customizer. Tracking a single
// fixed reference, or a filter without a class name, is not supported.
package tracker

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/corectk/pluginfw/fwerr"
	"github.com/corectk/pluginfw/ldapfilter"
	"github.com/corectk/pluginfw/registry"
)

// Customizer lets a caller substitute what object is tracked for a given
// reference, and observe add/modify/remove transitions. A Tracker with no
// Customizer tracks the registry's own service object unmodified.
type Customizer interface {
	// AddingService is called when a reference matching the tracker's
	// criteria is found (either already registered at Open, or
	// registered afterward). The returned object is what GetService
	// returns for reference; if ok is false the reference is not
	// tracked at all.
	AddingService(ref registry.Reference) (service any, ok bool)
	// ModifiedService is called when a tracked reference's properties
	// change.
	ModifiedService(ref registry.Reference, service any)
	// RemovedService is called when a tracked reference is unregistered
	// or no longer matches the tracker's criteria.
	RemovedService(ref registry.Reference, service any)
}

// trackedEntry pairs a tracked Reference with whatever Customizer.
// AddingService returned for it (or the registry's own service object, if
// no Customizer was supplied).
type trackedEntry struct {
	ref     registry.Reference
	service any
}

// Tracker tracks registry services matching a class name and optional
// filter, keeping the currently matching references and their tracked
// objects in a map guarded by a read-write mutex; GetServiceReferences
// returns them ranked.
type Tracker struct {
	reg        *registry.Registry
	class      string
	filter     ldapfilter.Expr
	filterStr  string
	customizer Customizer

	mu            sync.RWMutex
	tracked       map[int64]*trackedEntry
	trackingCount int
	opened        bool

	waiters   []chan struct{}
	waitersMu sync.Mutex
}

// New creates a Tracker for every service registered under class. If
// filter is non-empty it further restricts tracking to references whose
// properties satisfy it. customizer may be nil, in which case the
// registry's service object is tracked unmodified and ungetting on
// removal is a no-op (registry.UngetService is itself a no-op; see
// registry.Registry.UngetService).
func New(reg *registry.Registry, class, filter string, customizer Customizer) (*Tracker, error) {
	var expr ldapfilter.Expr
	if filter != "" {
		parsed, err := ldapfilter.Parse(filter)
		if err != nil {
			return nil, err
		}
		expr = parsed
	}
	return &Tracker{
		reg:        reg,
		class:      class,
		filter:     expr,
		filterStr:  filter,
		customizer: customizer,
		tracked:    make(map[int64]*trackedEntry),
	}, nil
}

// Open begins tracking: it registers a service listener with the
// registry and seeds the tracker with every reference currently
// registered under class that matches the filter.
func (t *Tracker) Open() error {
	t.mu.Lock()
	if t.opened {
		t.mu.Unlock()
		return fwerr.IllegalStatef("tracker", "Open", "tracker for class %q is already open", t.class)
	}
	t.opened = true
	t.mu.Unlock()

	if err := t.reg.AddServiceListener(t, t.filterStr); err != nil {
		return err
	}

	refs, err := t.reg.GetReferences(t.class, t.filter)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		t.track(ref)
	}
	return nil
}

// Close stops tracking: it removes the tracker's service listener and
// reports every currently tracked reference as removed.
func (t *Tracker) Close() {
	t.mu.Lock()
	if !t.opened {
		t.mu.Unlock()
		return
	}
	t.opened = false
	refs := make([]registry.Reference, 0, len(t.tracked))
	for _, e := range t.tracked {
		refs = append(refs, e.ref)
	}
	t.mu.Unlock()

	t.reg.RemoveServiceListener(t)
	for _, ref := range refs {
		t.untrack(ref)
	}
	t.broadcastWaiters()
}

// ServiceChanged implements registry.ServiceListener.
func (t *Tracker) ServiceChanged(evt registry.ServiceEvent) {
	inClass := false
	for _, c := range evt.Reference.Classes() {
		if c == t.class {
			inClass = true
			break
		}
	}
	if !inClass {
		return
	}
	switch evt.Kind {
	case registry.Registered:
		t.track(evt.Reference)
	case registry.Modified:
		t.mu.RLock()
		entry, ok := t.tracked[evt.Reference.ServiceID()]
		t.mu.RUnlock()
		if ok && t.customizer != nil {
			t.customizer.ModifiedService(evt.Reference, entry.service)
		}
		t.bumpTrackingCount()
	case registry.ModifiedEndmatch, registry.Unregistering:
		t.untrack(evt.Reference)
	}
}

func (t *Tracker) track(ref registry.Reference) {
	var service any
	if t.customizer != nil {
		svc, ok := t.customizer.AddingService(ref)
		if !ok {
			return
		}
		service = svc
	} else {
		svc, err := t.reg.GetService(ref)
		if err != nil {
			return
		}
		service = svc
	}

	t.mu.Lock()
	t.tracked[ref.ServiceID()] = &trackedEntry{ref: ref, service: service}
	t.trackingCount++
	t.mu.Unlock()
	t.broadcastWaiters()
}

func (t *Tracker) untrack(ref registry.Reference) {
	t.mu.Lock()
	entry, ok := t.tracked[ref.ServiceID()]
	if ok {
		delete(t.tracked, ref.ServiceID())
		t.trackingCount++
	}
	t.mu.Unlock()

	if ok && t.customizer != nil {
		t.customizer.RemovedService(ref, entry.service)
	}
}

func (t *Tracker) bumpTrackingCount() {
	t.mu.Lock()
	t.trackingCount++
	t.mu.Unlock()
}

// Remove stops tracking the service referenced by ref, as if it had been
// unregistered, invoking the customizer's RemovedService if it was
// tracked.
func (t *Tracker) Remove(ref registry.Reference) {
	t.untrack(ref)
}

// GetServiceReferences returns every currently tracked reference, ordered
// by descending ranking then ascending service ID.
func (t *Tracker) GetServiceReferences() []registry.Reference {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]registry.Reference, 0, len(t.tracked))
	for _, e := range t.tracked {
		out = append(out, e.ref)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Ranking() != out[j].Ranking() {
			return out[i].Ranking() > out[j].Ranking()
		}
		return out[i].ServiceID() < out[j].ServiceID()
	})
	return out
}

// GetServiceReference returns the highest-ranked tracked reference, or a
// NoSuchService error if nothing is currently tracked.
func (t *Tracker) GetServiceReference() (registry.Reference, error) {
	refs := t.GetServiceReferences()
	if len(refs) == 0 {
		return registry.Reference{}, fwerr.NoSuchServicef("tracker", "GetServiceReference", "no service is currently tracked for class %q", t.class)
	}
	return refs[0], nil
}

// GetService returns the tracked object for ref, or nil if ref is not
// currently tracked.
func (t *Tracker) GetService(ref registry.Reference) any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.tracked[ref.ServiceID()]
	if !ok {
		return nil
	}
	return entry.service
}

// GetServices returns the tracked objects for every currently tracked
// reference, in the same order as GetServiceReferences.
func (t *Tracker) GetServices() []any {
	refs := t.GetServiceReferences()
	out := make([]any, 0, len(refs))
	for _, ref := range refs {
		out = append(out, t.GetService(ref))
	}
	return out
}

// GetServiceOrNil returns the tracked object for the highest-ranked
// tracked reference, or nil if nothing is currently tracked.
func (t *Tracker) GetServiceOrNil() any {
	ref, err := t.GetServiceReference()
	if err != nil {
		return nil
	}
	return t.GetService(ref)
}

// Size returns the number of services currently tracked.
func (t *Tracker) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tracked)
}

// IsEmpty reports whether no services are currently tracked.
func (t *Tracker) IsEmpty() bool {
	return t.Size() == 0
}

// GetTrackingCount returns the tracker's tracking count: 0 when opened,
// incremented on every add, modify, or remove. Comparing two
// GetTrackingCount results lets a caller detect whether anything changed
// between them without re-fetching the full reference list.
func (t *Tracker) GetTrackingCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.opened {
		return -1
	}
	return t.trackingCount
}

// WaitForService blocks until at least one service is tracked, the
// tracker is closed, or timeout elapses (0 waits indefinitely), then
// returns the result of GetServiceOrNil.
func (t *Tracker) WaitForService(timeout time.Duration) (any, error) {
	if svc := t.GetServiceOrNil(); svc != nil {
		return svc, nil
	}

	ch := make(chan struct{}, 1)
	t.waitersMu.Lock()
	t.waiters = append(t.waiters, ch)
	t.waitersMu.Unlock()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ch:
			if svc := t.GetServiceOrNil(); svc != nil {
				return svc, nil
			}
			t.mu.RLock()
			closed := !t.opened
			t.mu.RUnlock()
			if closed {
				return nil, nil
			}
		case <-deadline:
			return nil, fmt.Errorf("tracker: timed out waiting for service")
		}
	}
}

func (t *Tracker) broadcastWaiters() {
	t.waitersMu.Lock()
	defer t.waitersMu.Unlock()
	for _, ch := range t.waiters {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
