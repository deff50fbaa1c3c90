package configadmin

import (
	"github.com/corectk/pluginfw/props"
	"github.com/corectk/pluginfw/registry"
)

// managedServiceClass and managedServiceFactoryClass are the class names
// ManagedService/ManagedServiceFactory implementations register under,
// matching ctkManagedServiceTracker and ctkManagedServiceFactoryTracker.
const (
	managedServiceClass        = "ManagedService"
	managedServiceFactoryClass = "ManagedServiceFactory"
)

// ManagedService receives a PID's configuration dictionary whenever it
// changes, grounded on ctkManagedService. Registering one under
// managedServiceClass with a "service.pid" property opts a plugin in to
// configadmin delivery for that PID: it is called once with either the
// PID's existing properties or an empty dictionary as soon as it is
// tracked, and again on every subsequent Configuration.Update.
type ManagedService interface {
	// Updated is delivered asynchronously, serialized per PID so that
	// updates for the same PID are never reordered or delivered
	// concurrently with one another (spec §4.F, §9). An empty
	// properties Map means the PID currently has no stored
	// configuration. A returned error is logged, never propagated.
	Updated(properties *props.Map) error
}

// ManagedServiceFactory is ManagedService's factory-configuration
// counterpart, grounded on ctkManagedServiceFactory: each factory PID
// instance is delivered independently, keyed by its own minted PID.
type ManagedServiceFactory interface {
	// Name returns a human-readable name for the factory, for
	// diagnostics.
	Name() string
	// UpdatedInstance delivers factoryInstancePID's properties,
	// serialized per instance PID the same way ManagedService.Updated
	// is.
	UpdatedInstance(factoryInstancePID string, properties *props.Map) error
	// Deleted notifies the factory that factoryInstancePID's
	// configuration was removed.
	Deleted(factoryInstancePID string)
}

// managedEntry pairs a tracked ManagedService/ManagedServiceFactory
// reference with the PID (or factory PID) it is registered for.
type managedEntry struct {
	ref registry.Reference
	pid string
}

// managedCustomizer implements tracker.Customizer for the ManagedService
// class, grounded on ctkManagedServiceTracker::addingService/
// removedService.
type managedCustomizer struct{ a *Admin }

func (c managedCustomizer) AddingService(ref registry.Reference) (any, bool) {
	pid, ok := pidOf(ref)
	if !ok {
		c.a.logger.Warn("configadmin: ManagedService registered without service.pid", "plugin", ref.Plugin())
		return nil, false
	}
	svc, err := c.a.registry.GetService(ref)
	if err != nil {
		return nil, false
	}
	ms, ok := svc.(ManagedService)
	if !ok {
		c.a.logger.Warn("configadmin: service registered as ManagedService does not implement ManagedService", "pid", pid)
		return nil, false
	}

	c.a.mu.Lock()
	if _, dup := c.a.managedByPID[pid]; dup {
		c.a.mu.Unlock()
		c.a.logger.Warn("configadmin: a ManagedService is already tracked for pid, ignoring duplicate", "pid", pid)
		return nil, false
	}
	entry := &managedEntry{ref: ref, pid: pid}
	c.a.managedByPID[pid] = entry
	c.a.mu.Unlock()

	c.a.addManagedService(pid, ref, ms)
	return entry, true
}

func (c managedCustomizer) ModifiedService(registry.Reference, any) {}

func (c managedCustomizer) RemovedService(ref registry.Reference, service any) {
	entry, ok := service.(*managedEntry)
	if !ok {
		return
	}
	c.a.mu.Lock()
	delete(c.a.managedByPID, entry.pid)
	if rec, ok := c.a.records[entry.pid]; ok && rec.boundPlugin == ref.Plugin() {
		rec.unbind()
	}
	c.a.mu.Unlock()
}

// factoryCustomizer implements tracker.Customizer for the
// ManagedServiceFactory class.
type factoryCustomizer struct{ a *Admin }

func (c factoryCustomizer) AddingService(ref registry.Reference) (any, bool) {
	factoryPID, ok := pidOf(ref)
	if !ok {
		c.a.logger.Warn("configadmin: ManagedServiceFactory registered without service.pid", "plugin", ref.Plugin())
		return nil, false
	}
	svc, err := c.a.registry.GetService(ref)
	if err != nil {
		return nil, false
	}
	msf, ok := svc.(ManagedServiceFactory)
	if !ok {
		return nil, false
	}

	c.a.mu.Lock()
	if _, dup := c.a.factoriesByPID[factoryPID]; dup {
		c.a.mu.Unlock()
		c.a.logger.Warn("configadmin: a ManagedServiceFactory is already tracked for pid, ignoring duplicate", "factory_pid", factoryPID)
		return nil, false
	}
	entry := &managedEntry{ref: ref, pid: factoryPID}
	c.a.factoriesByPID[factoryPID] = entry
	instances := c.a.factoryInstanceRecords(factoryPID)
	c.a.mu.Unlock()

	for _, rec := range instances {
		c.a.deliverFactoryInstance(rec.pid, msf)
	}
	return entry, true
}

func (c factoryCustomizer) ModifiedService(registry.Reference, any) {}

func (c factoryCustomizer) RemovedService(ref registry.Reference, service any) {
	entry, ok := service.(*managedEntry)
	if !ok {
		return
	}
	c.a.mu.Lock()
	delete(c.a.factoriesByPID, entry.pid)
	c.a.mu.Unlock()
}

func pidOf(ref registry.Reference) (string, bool) {
	v, ok := ref.Properties().Get(propPID)
	if !ok {
		return "", false
	}
	return v.AsString(), true
}

// addManagedService delivers the PID's current configuration (or an
// empty dictionary) to a newly tracked ManagedService, mirroring
// ctkManagedServiceTracker::addManagedService.
func (a *Admin) addManagedService(pid string, ref registry.Reference, ms ManagedService) {
	a.mu.Lock()
	rec, exists := a.records[pid]
	if !exists {
		a.mu.Unlock()
		a.submit(pid, func() { deliver(a, pid, ms, emptyProps()) })
		return
	}
	if rec.factoryPID != "" {
		a.logger.Warn("configadmin: pid is a factory configuration, use ManagedServiceFactory instead", "pid", pid)
	}
	if rec.deleted {
		a.mu.Unlock()
		a.submit(pid, func() { deliver(a, pid, ms, emptyProps()) })
		return
	}
	if !rec.bind(ref.Plugin()) {
		a.mu.Unlock()
		a.logger.Warn("configadmin: configuration could not be bound to plugin", "pid", pid, "plugin", ref.Plugin())
		return
	}
	properties := rec.properties()
	a.mu.Unlock()

	properties = a.apply(pid, properties)
	a.submit(pid, func() { deliver(a, pid, ms, properties) })
}

func (a *Admin) deliverFactoryInstance(pid string, msf ManagedServiceFactory) {
	a.mu.RLock()
	rec, ok := a.records[pid]
	a.mu.RUnlock()
	if !ok {
		return
	}
	properties := a.apply(pid, rec.properties())
	a.submit(pid, func() {
		if err := msf.UpdatedInstance(pid, properties); err != nil {
			a.logger.Error("configadmin: ManagedServiceFactory.UpdatedInstance failed", "pid", pid, "error", err)
		}
	})
}

func deliver(a *Admin, pid string, ms ManagedService, properties *props.Map) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("configadmin: ManagedService.Updated panicked", "pid", pid, "panic", r)
		}
	}()
	if err := ms.Updated(properties); err != nil {
		a.logger.Error("configadmin: ManagedService.Updated failed", "pid", pid, "error", err)
	}
}

func (a *Admin) submit(pid string, task func()) {
	a.executor.Submit(pid, task)
}

func emptyProps() *props.Map {
	m, _ := props.New()
	return m
}

func (a *Admin) factoryInstanceRecords(factoryPID string) []*Record {
	out := make([]*Record, 0)
	for _, rec := range a.records {
		if rec.factoryPID == factoryPID && !rec.deleted {
			out = append(out, rec)
		}
	}
	return out
}
