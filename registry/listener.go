package registry

import (
	"fmt"
	"strings"

	"github.com/corectk/pluginfw/ldapfilter"
	"github.com/corectk/pluginfw/props"
)

// cacheableKeys lists the property keys eligible for the listener dispatch
// optimization described in spec §4.D: a listener filter reducible to
// equality checks on one of these keys is bucketed by (key, value) instead
// of being evaluated against every event.
var cacheableKeys = []string{"objectclass", "service.id", "service.pid"}

// ServiceListener receives ServiceEvents for registrations matching the
// filter it was added with.
type ServiceListener interface {
	ServiceChanged(evt ServiceEvent)
}

type listenerEntry struct {
	listener  ServiceListener
	filterStr string
	filter    ldapfilter.Expr
	matches   []ldapfilter.CacheableMatch
	cacheable bool

	// matchedBefore tracks, per service ID, whether this listener's
	// filter last matched that registration, so a property change that
	// stops a match can be reported as ModifiedEndmatch instead of
	// Modified.
	matchedBefore map[int64]bool
}

// AddServiceListener registers listener to receive ServiceEvents for
// registrations whose properties satisfy filterExpr. An empty filterExpr
// matches every registration.
func (r *Registry) AddServiceListener(listener ServiceListener, filterExpr string) error {
	entry := &listenerEntry{listener: listener, filterStr: filterExpr, matchedBefore: make(map[int64]bool)}
	if strings.TrimSpace(filterExpr) != "" {
		expr, err := ldapfilter.Parse(filterExpr)
		if err != nil {
			return err
		}
		entry.filter = expr
		if matches, ok := ldapfilter.Cacheable(expr, cacheableKeys); ok {
			entry.matches = matches
			entry.cacheable = true
		}
	}

	r.listenersMu.Lock()
	r.listeners = append(r.listeners, entry)
	r.listenersMu.Unlock()
	return nil
}

// RemoveServiceListener deregisters every entry previously added for
// listener.
func (r *Registry) RemoveServiceListener(listener ServiceListener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	out := r.listeners[:0:0]
	for _, e := range r.listeners {
		if e.listener != listener {
			out = append(out, e)
		}
	}
	r.listeners = out
}

// SetFrameworkListener installs l to receive FrameworkEvents, most
// importantly PluginError reports for panicking listener callbacks. Pass
// nil to stop receiving them.
func (r *Registry) SetFrameworkListener(l FrameworkListener) {
	r.listenersMu.Lock()
	defer r.listenersMu.Unlock()
	r.frameworkListener = l
}

func (r *Registry) dispatch(evt ServiceEvent) {
	r.meter.recordDispatched()

	r.listenersMu.RLock()
	entries := make([]*listenerEntry, len(r.listeners))
	copy(entries, r.listeners)
	fl := r.frameworkListener
	r.listenersMu.RUnlock()

	p := evt.Reference.Properties()
	for _, e := range entries {
		matchesNow := matchesEntry(e, p)
		matchedBefore := e.matchedBefore[evt.Reference.ServiceID()]

		deliver := evt
		switch {
		case matchesNow:
			e.matchedBefore[evt.Reference.ServiceID()] = true
		case matchedBefore && evt.Kind == Modified:
			deliver.Kind = ModifiedEndmatch
			e.matchedBefore[evt.Reference.ServiceID()] = false
		default:
			if evt.Kind == Unregistering {
				delete(e.matchedBefore, evt.Reference.ServiceID())
			}
			continue
		}

		if evt.Kind == Unregistering {
			delete(e.matchedBefore, evt.Reference.ServiceID())
		}

		callListener(e.listener, deliver, evt.Reference.Plugin(), fl)
	}
}

// matchesEntry reports whether entry's filter matches p. Cacheable
// entries (a bare equality, or an OR of them, on objectclass/service.id/
// service.pid) are resolved with a direct property lookup instead of a
// full filter tree walk, per spec §4.D's dispatch optimization.
func matchesEntry(e *listenerEntry, p *props.Map) bool {
	if e.filter == nil {
		return true
	}
	if !e.cacheable {
		return e.filter.Evaluate(p, false)
	}
	for _, m := range e.matches {
		if v, ok := p.Get(m.Key); ok && v.AsString() == m.Value {
			return true
		}
	}
	return false
}

func callListener(listener ServiceListener, evt ServiceEvent, plugin string, fl FrameworkListener) {
	defer func() {
		if rec := recover(); rec != nil {
			if fl != nil {
				fl.FrameworkEvent(FrameworkEvent{Kind: PluginError, Plugin: plugin, Error: fmt.Errorf("listener panic: %v", rec)})
			}
		}
	}()
	listener.ServiceChanged(evt)
}
