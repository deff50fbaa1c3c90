// Package registry implements the in-process Service Registry and Event
// Dispatch component (spec §4.D): a framework-instance-scoped table of
// registered services, looked up by class name or LDAP filter, with
// synchronous listener dispatch on every registration change.
//
// A Registry is the sole source of truth for what is registered in this
// process. The optional Mirror (mirror.go, mirror_client.go) fans a
// read-only copy of that state out to an etcd namespace so other framework
// instances can discover it; it never feeds back into local lookups.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/corectk/pluginfw/fwerr"
	"github.com/corectk/pluginfw/ldapfilter"
	"github.com/corectk/pluginfw/props"
)

// Registration is a single entry in the registry: a service object
// published under one or more class names, with ranked, queryable
// properties. Registration is returned to callers as a *Reference; the
// struct itself is never exposed directly so that Unregister and
// SetProperties stay serialized through the owning Registry.
type Registration struct {
	mu sync.RWMutex

	id      int64
	classes []string
	service any
	plugin  string
	props   *props.Map
	ranking int

	registry     *Registry
	unregistered bool
}

// Reference is a lightweight, copyable handle to a Registration. Holding a
// Reference has no effect on the registration's lifetime: Go's garbage
// collector, not reference counting, is what keeps a Registration's memory
// alive, matching spec §9's "rely on Go's GC" redesign guidance.
type Reference struct {
	reg *Registration
}

// ServiceID returns the monotonically increasing identifier assigned to
// the registration at Register time.
func (r Reference) ServiceID() int64 {
	return r.reg.id
}

// Classes returns the class names the service was registered under.
func (r Reference) Classes() []string {
	out := make([]string, len(r.reg.classes))
	copy(out, r.reg.classes)
	return out
}

// Plugin returns the identifier of the plugin that owns the registration.
func (r Reference) Plugin() string {
	return r.reg.plugin
}

// Ranking returns the registration's service.ranking property, used to
// order GetReferences results (spec §4.D invariant 2: highest ranking,
// then lowest service ID, wins ties).
func (r Reference) Ranking() int {
	r.reg.mu.RLock()
	defer r.reg.mu.RUnlock()
	return r.reg.ranking
}

// Properties returns a snapshot of the registration's current property
// map. Mutating the returned Map has no effect on the registration; use
// Registry.SetProperties to change it.
func (r Reference) Properties() *props.Map {
	r.reg.mu.RLock()
	defer r.reg.mu.RUnlock()
	return r.reg.props
}

// Registry is the per-framework-instance table of registered services.
//
// All mutating and dispatching methods take the registry's own mutex
// while reading or updating indices, but release it before invoking any
// listener callback (spec §9: "never hold a framework lock while invoking
// plugin code"), isolating listener panics with recover so one
// misbehaving listener cannot corrupt registry state or take down others.
type Registry struct {
	mu        sync.RWMutex
	byID      map[int64]*Registration
	byClass   map[string][]*Registration
	nextID    int64

	listeners         []*listenerEntry
	listenersMu       sync.RWMutex
	frameworkListener FrameworkListener

	mirror Mirror
	meter  meterHooks
}

// Config configures optional Registry behavior.
type Config struct {
	// Mirror, if non-nil, receives REGISTERED/MODIFIED/UNREGISTERING
	// notifications for cross-instance discovery. Off by default.
	Mirror Mirror
}

// New creates an empty Registry. cfg may be the zero Config.
func New(cfg Config) *Registry {
	return &Registry{
		byID:    make(map[int64]*Registration),
		byClass: make(map[string][]*Registration),
		mirror:  cfg.Mirror,
	}
}

// Register publishes service under the given class names with the given
// properties, returning a Reference to the new Registration. plugin
// identifies the owning plugin for diagnostics and for
// UnregisterAllForPlugin.
//
// classes must be non-empty; duplicate or blank class names are rejected
// with an InvalidArgument error.
func (r *Registry) Register(plugin string, classes []string, service any, properties *props.Map) (Reference, error) {
	if len(classes) == 0 {
		return Reference{}, fwerr.InvalidArgumentf("registry", "Register", "at least one class name is required")
	}
	seen := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		if c == "" {
			return Reference{}, fwerr.InvalidArgumentf("registry", "Register", "class name must not be empty")
		}
		if _, dup := seen[c]; dup {
			return Reference{}, fwerr.InvalidArgumentf("registry", "Register", "duplicate class name %q", c)
		}
		seen[c] = struct{}{}
	}
	if properties == nil {
		properties = mustEmptyProps()
	}

	r.mu.Lock()
	r.nextID++
	reg := &Registration{
		id:      r.nextID,
		classes: append([]string(nil), classes...),
		service: service,
		plugin:  plugin,
		props:   properties,
		ranking: rankingOf(properties),
		registry: r,
	}
	r.byID[reg.id] = reg
	for _, c := range classes {
		r.byClass[c] = insertRanked(r.byClass[c], reg)
	}
	r.mu.Unlock()

	r.meter.recordRegistered()
	ref := Reference{reg: reg}
	r.publishMirror(reg, false)
	r.dispatch(ServiceEvent{Kind: Registered, Reference: ref})
	return ref, nil
}

// SetProperties replaces ref's property map and re-sorts any class index
// the registration participates in, then dispatches a Modified event.
func (r *Registry) SetProperties(ref Reference, properties *props.Map) error {
	reg := ref.reg
	if properties == nil {
		properties = mustEmptyProps()
	}

	r.mu.Lock()
	reg.mu.Lock()
	if reg.unregistered {
		reg.mu.Unlock()
		r.mu.Unlock()
		return fwerr.IllegalStatef("registry", "SetProperties", "service %d is already unregistered", reg.id)
	}
	reg.props = properties
	reg.ranking = rankingOf(properties)
	reg.mu.Unlock()
	for _, c := range reg.classes {
		r.byClass[c] = insertRanked(removeReg(r.byClass[c], reg), reg)
	}
	r.mu.Unlock()

	r.publishMirror(reg, false)
	r.dispatch(ServiceEvent{Kind: Modified, Reference: ref})
	return nil
}

// Unregister removes ref from the lookup indices before dispatching the
// Unregistering event, so a listener invoked during that dispatch can no
// longer find it via GetReference/GetReferences (spec §4.D step 2), then
// dispatches the event, then marks the registration unregistered so
// GetService still resolves for the duration of the event (spec §4.D:
// GetService keeps working until after the listener has been notified).
func (r *Registry) Unregister(ref Reference) error {
	reg := ref.reg
	r.mu.Lock()
	reg.mu.Lock()
	if reg.unregistered {
		reg.mu.Unlock()
		r.mu.Unlock()
		return fwerr.IllegalStatef("registry", "Unregister", "service %d is already unregistered", reg.id)
	}
	reg.mu.Unlock()
	delete(r.byID, reg.id)
	for _, c := range reg.classes {
		r.byClass[c] = removeReg(r.byClass[c], reg)
	}
	r.mu.Unlock()

	r.dispatch(ServiceEvent{Kind: Unregistering, Reference: ref})

	reg.mu.Lock()
	reg.unregistered = true
	reg.mu.Unlock()

	r.meter.recordUnregistered()
	r.retractMirror(reg)
	return nil
}

// GetReference returns the highest-ranked reference registered under
// class, or ok=false if none match. Ties break by lowest service ID
// (spec §4.D invariant 2).
func (r *Registry) GetReference(class string) (ref Reference, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regs := r.byClass[class]
	if len(regs) == 0 {
		return Reference{}, false
	}
	return Reference{reg: regs[0]}, true
}

// GetReferences returns every reference registered under class whose
// properties match filter, ordered by descending ranking then ascending
// service ID. A nil or empty filter matches every registration under
// class.
func (r *Registry) GetReferences(class string, filter ldapfilter.Expr) ([]Reference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Reference
	for _, reg := range r.byClass[class] {
		reg.mu.RLock()
		matches := filter == nil || filter.Evaluate(reg.props, false)
		reg.mu.RUnlock()
		if matches {
			out = append(out, Reference{reg: reg})
		}
	}
	return out, nil
}

// GetService returns the service object behind ref, or a NoSuchService
// error if it has already been unregistered.
func (r *Registry) GetService(ref Reference) (any, error) {
	reg := ref.reg
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	if reg.unregistered {
		return nil, fwerr.NoSuchServicef("registry", "GetService", "service %d is not registered", reg.id)
	}
	return reg.service, nil
}

// UngetService is a no-op in this implementation: Go's GC, not a
// use-count, governs the service object's lifetime (spec §9). It exists
// so callers can keep the Get/Unget pairing symmetric with the original
// API.
func (r *Registry) UngetService(Reference) {}

// UnregisterAllForPlugin unregisters every service still registered
// under plugin's identifier, the cleanup a framework runs when a plugin
// stops or is uninstalled so it cannot leave stale registrations behind.
func (r *Registry) UnregisterAllForPlugin(plugin string) {
	r.mu.RLock()
	var refs []Reference
	for _, reg := range r.byID {
		reg.mu.RLock()
		owned := reg.plugin == plugin && !reg.unregistered
		reg.mu.RUnlock()
		if owned {
			refs = append(refs, Reference{reg: reg})
		}
	}
	r.mu.RUnlock()

	for _, ref := range refs {
		_ = r.Unregister(ref)
	}
}

func (r *Registry) publishMirror(reg *Registration, _ bool) {
	if r.mirror == nil {
		return
	}
	reg.mu.RLock()
	entry := MirrorEntry{
		ServiceID:    reg.id,
		Ranking:      reg.ranking,
		Plugin:       reg.plugin,
		Properties:   reg.props.AsStringMap(),
		RegisteredAt: time.Now(),
	}
	classes := append([]string(nil), reg.classes...)
	reg.mu.RUnlock()
	for _, c := range classes {
		entry.Class = c
		_ = r.mirror.Publish(entry)
	}
}

func (r *Registry) retractMirror(reg *Registration) {
	if r.mirror == nil {
		return
	}
	for _, c := range reg.classes {
		_ = r.mirror.Retract(c, reg.id)
	}
}

func rankingOf(p *props.Map) int {
	v, ok := p.Get("service.ranking")
	if !ok {
		return 0
	}
	f, ok := v.NumericValue()
	if !ok {
		return 0
	}
	return int(f)
}

func mustEmptyProps() *props.Map {
	m, _ := props.New()
	return m
}

// insertRanked inserts reg into regs, keeping the slice ordered by
// descending ranking then ascending service ID.
func insertRanked(regs []*Registration, reg *Registration) []*Registration {
	out := append(regs, reg)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i], out[j]
		ri.mu.RLock()
		rj.mu.RLock()
		rankI, rankJ := ri.ranking, rj.ranking
		ri.mu.RUnlock()
		rj.mu.RUnlock()
		if rankI != rankJ {
			return rankI > rankJ
		}
		return out[i].id < out[j].id
	})
	return out
}

func removeReg(regs []*Registration, reg *Registration) []*Registration {
	out := regs[:0:0]
	for _, r := range regs {
		if r != reg {
			out = append(out, r)
		}
	}
	return out
}
