package configadmin

import (
	"github.com/corectk/pluginfw/fwerr"
	"github.com/corectk/pluginfw/props"
)

// Configuration is a handle to one PID's configuration, returned by
// PluginFacade. It is safe to retain and reuse across calls; every method
// re-reads the Admin's current Record so a Configuration handle never
// goes stale the way a raw snapshot would.
type Configuration struct {
	admin    *Admin
	pid      string
	location string
}

// PID returns the configuration's persistent identifier.
func (c *Configuration) PID() string { return c.pid }

// FactoryPID returns the factory identifier and true if this is a
// factory configuration instance, or ("", false) for a singleton
// configuration.
func (c *Configuration) FactoryPID() (string, bool) {
	a := c.admin
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.records[c.pid]
	if !ok || rec.factoryPID == "" {
		return "", false
	}
	return rec.factoryPID, true
}

// Properties returns a snapshot of the configuration's current
// user-visible properties (service.pid and, for a factory instance,
// service.factoryPid, plus whatever the plugin last stored). Returns an
// empty Map if the PID has been deleted or has no record; a record that
// exists but was never updated yields just its service.pid (and
// service.factoryPid).
func (c *Configuration) Properties() *props.Map {
	a := c.admin
	a.mu.RLock()
	defer a.mu.RUnlock()
	rec, ok := a.records[c.pid]
	if !ok || rec.deleted {
		return emptyProps()
	}
	return rec.properties()
}

// Update stores properties for the configuration, persists it, runs it
// through the registered ConfigurationPlugin chain, delivers it to any
// tracked ManagedService/ManagedServiceFactory for this PID, and
// dispatches a CM_UPDATED event to configuration listeners (and the
// optional bridge), matching ctkConfigurationImpl::update.
func (c *Configuration) Update(properties *props.Map) error {
	a := c.admin
	clean := stripReserved(properties)

	a.mu.Lock()
	rec, ok := a.records[c.pid]
	if !ok {
		rec = newRecord(c.pid, "", c.location)
		a.records[c.pid] = rec
	}
	if rec.deleted {
		a.mu.Unlock()
		return fwerr.IllegalStatef("configadmin", "Update", "pid %s has been deleted", c.pid)
	}
	rec.user = clean
	rec.deleted = false
	factoryPID := rec.factoryPID
	snap := Snapshot{PID: c.pid, FactoryPID: factoryPID, Location: rec.location, Properties: clean.AsStringMap()}
	a.mu.Unlock()

	if err := a.store.Save(c.pid, snap); err != nil {
		return fwerr.ConfigurationErrorf("configadmin", "Update", "failed to persist pid %s: %v", c.pid, err)
	}

	a.meter.recordUpdated()
	a.notify(Event{Type: CMUpdated, PID: c.pid, FactoryPID: factoryPID})
	a.deliverAfterUpdate(c.pid, factoryPID)
	return nil
}

// deliverAfterUpdate redelivers a PID's properties to whatever
// ManagedService/ManagedServiceFactory instance is currently tracked for
// it, after an Update.
func (a *Admin) deliverAfterUpdate(pid, factoryPID string) {
	a.mu.RLock()
	rec := a.records[pid]
	msEntry, hasMS := a.managedByPID[pid]
	var factoryEntry *managedEntry
	var hasFactory bool
	if factoryPID != "" {
		factoryEntry, hasFactory = a.factoriesByPID[factoryPID]
	}
	a.mu.RUnlock()
	if rec == nil {
		return
	}
	properties := a.apply(pid, rec.properties())

	if hasMS {
		if svc, err := a.registry.GetService(msEntry.ref); err == nil {
			if ms, ok := svc.(ManagedService); ok {
				a.submit(pid, func() { deliver(a, pid, ms, properties) })
			}
		}
	}
	if hasFactory {
		if svc, err := a.registry.GetService(factoryEntry.ref); err == nil {
			if msf, ok := svc.(ManagedServiceFactory); ok {
				a.submit(pid, func() {
					if err := msf.UpdatedInstance(pid, properties); err != nil {
						a.logger.Error("configadmin: ManagedServiceFactory.UpdatedInstance failed", "pid", pid, "error", err)
					}
				})
			}
		}
	}
}

// Delete removes the configuration, deletes its persisted state,
// notifies any tracked ManagedServiceFactory via Deleted (a
// ManagedService instead receives an Updated call with an empty Map, the
// same as if it had never been configured), and dispatches a CM_DELETED
// event.
func (c *Configuration) Delete() error {
	a := c.admin
	a.mu.Lock()
	rec, ok := a.records[c.pid]
	if !ok || rec.deleted {
		a.mu.Unlock()
		return nil
	}
	rec.deleted = true
	factoryPID := rec.factoryPID
	msEntry, hasMS := a.managedByPID[c.pid]
	var factoryEntry *managedEntry
	var hasFactory bool
	if factoryPID != "" {
		factoryEntry, hasFactory = a.factoriesByPID[factoryPID]
	}
	delete(a.records, c.pid)
	a.mu.Unlock()

	if err := a.store.Delete(c.pid); err != nil {
		return fwerr.ConfigurationErrorf("configadmin", "Delete", "failed to remove persisted pid %s: %v", c.pid, err)
	}

	a.meter.recordDeleted()
	if hasMS {
		if svc, err := a.registry.GetService(msEntry.ref); err == nil {
			if ms, ok := svc.(ManagedService); ok {
				pid := c.pid
				a.submit(pid, func() { deliver(a, pid, ms, emptyProps()) })
			}
		}
	}
	if hasFactory {
		if svc, err := a.registry.GetService(factoryEntry.ref); err == nil {
			if msf, ok := svc.(ManagedServiceFactory); ok {
				pid := c.pid
				a.submit(pid, func() { msf.Deleted(pid) })
			}
		}
	}
	a.notify(Event{Type: CMDeleted, PID: c.pid, FactoryPID: factoryPID})
	return nil
}
