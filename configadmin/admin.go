// Package configadmin implements the Config-Admin component (spec
// §4.F): persistent, PID-keyed configuration dictionaries delivered to
// ManagedService/ManagedServiceFactory plugins, intercepted by an
// ordered ConfigurationPlugin chain, and observable via
// ConfigurationListener.
//
// Grounded on ctkConfigurationAdmin/ctkConfigurationImpl/
// ctkConfigurationStore/ctkManagedServiceTracker/
// ctkManagedServiceFactoryTracker/ctkCMPluginManager/ctkCMEventDispatcher
// (original_source). Binding rules, the plugin chain's ranking order, and
// the asynchronous per-PID delivery queue all follow those sources; only
// the on-disk persistence format (YAML instead of QDataStream) and the
// optional Redis eventadmin bridge (package queue) depart from them.
package configadmin

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/corectk/pluginfw/dispatch"
	"github.com/corectk/pluginfw/fwerr"
	"github.com/corectk/pluginfw/ldapfilter"
	"github.com/corectk/pluginfw/props"
	"github.com/corectk/pluginfw/queue"
	"github.com/corectk/pluginfw/registry"
	"github.com/corectk/pluginfw/tracker"
)

// Admin is the Config-Admin service core: one per framework instance,
// shared by every plugin's PluginFacade.
type Admin struct {
	registry *registry.Registry
	store    Store
	logger   *slog.Logger
	executor *dispatch.Executor
	meter    meterHooks

	selfRef registry.Reference

	mu              sync.RWMutex
	records         map[string]*Record // keyed by PID
	managedByPID    map[string]*managedEntry
	factoriesByPID  map[string]*managedEntry
	createdPidCount int
	bridge          queue.Client

	listeners listenerSet

	plugins         pluginChain
	pluginsTracker  *tracker.Tracker
	managedTracker  *tracker.Tracker
	factoryTracker  *tracker.Tracker
}

// Option configures an Admin at construction time.
type Option func(*Admin)

// WithLogger attaches a structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Admin) { a.logger = logger }
}

// WithExecutor overrides the Executor used to serialize per-PID
// ManagedService delivery. Mainly useful for tests that want a shorter
// idle timeout than dispatch's default.
func WithExecutor(exec *dispatch.Executor) Option {
	return func(a *Admin) { a.executor = exec }
}

// WithBridge enables the optional event-admin bridge at construction
// time, equivalent to calling SetBridge immediately after New.
func WithBridge(c queue.Client) Option {
	return func(a *Admin) { a.bridge = c }
}

// New creates an Admin backed by reg and store, loads any persisted
// Records from store, registers the Admin itself as a "ConfigurationAdmin"
// service, and opens its internal ConfigurationPlugin/ManagedService/
// ManagedServiceFactory trackers.
func New(reg *registry.Registry, store Store, opts ...Option) (*Admin, error) {
	if store == nil {
		store = NopStore{}
	}
	a := &Admin{
		registry:       reg,
		store:          store,
		logger:         slog.Default(),
		executor:       dispatch.New(),
		records:        make(map[string]*Record),
		managedByPID:   make(map[string]*managedEntry),
		factoriesByPID: make(map[string]*managedEntry),
	}
	for _, opt := range opts {
		opt(a)
	}

	snapshots, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("configadmin: failed to load store: %w", err)
	}
	for pid, snap := range snapshots {
		rec := newRecord(pid, snap.FactoryPID, snap.Location)
		entries := make([]props.Entry, 0, len(snap.Properties))
		for k, v := range snap.Properties {
			entries = append(entries, props.E(k, props.String(v)))
		}
		userProps, err := props.New(entries...)
		if err != nil {
			a.logger.Warn("configadmin: dropping malformed persisted properties", "pid", pid, "error", err)
			userProps = emptyProps()
		}
		rec.user = userProps
		a.records[pid] = rec
	}

	empty, _ := props.New(props.E("service.pid", props.String("configadmin")))
	ref, err := reg.Register("configadmin", []string{"ConfigurationAdmin"}, a, empty)
	if err != nil {
		return nil, err
	}
	a.selfRef = ref

	if err := a.openTrackers(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Admin) openTrackers() error {
	pluginsTracker, err := tracker.New(a.registry, configurationPluginClass, "", pluginTrackerCustomizer{a})
	if err != nil {
		return err
	}
	if err := pluginsTracker.Open(); err != nil {
		return err
	}
	a.pluginsTracker = pluginsTracker

	managedTracker, err := tracker.New(a.registry, managedServiceClass, "", managedCustomizer{a})
	if err != nil {
		return err
	}
	if err := managedTracker.Open(); err != nil {
		return err
	}
	a.managedTracker = managedTracker

	factoryTracker, err := tracker.New(a.registry, managedServiceFactoryClass, "", factoryCustomizer{a})
	if err != nil {
		return err
	}
	if err := factoryTracker.Open(); err != nil {
		return err
	}
	a.factoryTracker = factoryTracker
	return nil
}

// pluginTrackerCustomizer feeds ConfigurationPlugin registrations into
// the Admin's ranked pluginChain.
type pluginTrackerCustomizer struct{ a *Admin }

func (c pluginTrackerCustomizer) AddingService(ref registry.Reference) (any, bool) {
	c.a.plugins.add(ref)
	return ref, true
}
func (c pluginTrackerCustomizer) ModifiedService(ref registry.Reference, _ any) {
	c.a.plugins.remove(ref)
	c.a.plugins.add(ref)
}
func (c pluginTrackerCustomizer) RemovedService(ref registry.Reference, _ any) {
	c.a.plugins.remove(ref)
}

// Close stops all internal trackers. It does not wait for managed-service
// deliveries already handed to the executor, and it does not shut the
// executor down.
func (a *Admin) Close() {
	if a.pluginsTracker != nil {
		a.pluginsTracker.Close()
	}
	if a.managedTracker != nil {
		a.managedTracker.Close()
	}
	if a.factoryTracker != nil {
		a.factoryTracker.Close()
	}
}

// PluginFacade is the per-plugin view of Config-Admin: every field and
// method is scoped to the location (plugin identifier) it was created
// for, matching the source framework's practice of handing each plugin
// its own ctkConfigurationAdmin facade bound to its own location.
type PluginFacade struct {
	admin    *Admin
	location string
}

// Facade returns a PluginFacade scoped to location, the calling plugin's
// identifier.
func (a *Admin) Facade(location string) *PluginFacade {
	return &PluginFacade{admin: a, location: location}
}

// GetConfiguration returns the Configuration for pid, creating an empty,
// unbound one and declaring this facade's own location for it if pid has
// never been seen before (ctkConfigurationAdmin::getConfiguration(pid)).
func (f *PluginFacade) GetConfiguration(pid string) (*Configuration, error) {
	return f.GetConfigurationWithLocation(pid, f.location)
}

// GetConfigurationWithLocation returns the Configuration for pid,
// creating one declared for location if pid has never been seen before.
// A location of "" means "not yet bound to any particular plugin".
func (f *PluginFacade) GetConfigurationWithLocation(pid, location string) (*Configuration, error) {
	if pid == "" {
		return nil, fwerr.InvalidArgumentf("configadmin", "GetConfiguration", "pid must not be empty")
	}
	a := f.admin
	a.mu.Lock()
	rec, ok := a.records[pid]
	if !ok {
		rec = newRecord(pid, "", location)
		a.records[pid] = rec
	}
	a.mu.Unlock()
	return &Configuration{admin: a, pid: pid, location: f.location}, nil
}

// CreateFactoryConfiguration mints a new instance PID under factoryPID
// and returns its Configuration, matching ctkConfigurationStore::
// createFactoryConfiguration's "<factoryPid>-<sequence>" naming (adapted
// to an incrementing counter instead of a timestamp, so minted PIDs stay
// deterministic within a process run).
func (f *PluginFacade) CreateFactoryConfiguration(factoryPID string) (*Configuration, error) {
	if factoryPID == "" {
		return nil, fwerr.InvalidArgumentf("configadmin", "CreateFactoryConfiguration", "factoryPID must not be empty")
	}
	a := f.admin
	a.mu.Lock()
	a.createdPidCount++
	pid := fmt.Sprintf("%s-%d", factoryPID, a.createdPidCount)
	rec := newRecord(pid, factoryPID, f.location)
	a.records[pid] = rec
	a.mu.Unlock()
	return &Configuration{admin: a, pid: pid, location: f.location}, nil
}

// ListConfigurations returns every non-deleted Configuration whose
// properties satisfy filter (an LDAP filter string). An empty filter
// matches every configuration.
func (f *PluginFacade) ListConfigurations(filter string) ([]*Configuration, error) {
	var expr ldapfilter.Expr
	if filter != "" {
		parsed, err := ldapfilter.Parse(filter)
		if err != nil {
			return nil, err
		}
		expr = parsed
	}

	a := f.admin
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*Configuration
	for pid, rec := range a.records {
		if rec.deleted {
			continue
		}
		if expr != nil && !expr.Evaluate(rec.allProperties(), false) {
			continue
		}
		out = append(out, &Configuration{admin: a, pid: pid, location: f.location})
	}
	return out, nil
}
