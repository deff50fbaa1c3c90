package metatype

import (
	"fmt"
	"io"
	"sync"
)

// entry is one plugin's binding of a PID or factory PID to an OCD,
// together with the localization bundle (if any) its Designate's OCD
// should be rendered through.
type entry struct {
	designate Designate
	plugin    string
	bundle    *Bundle
}

// Registry tracks every PID/factory-PID -> ObjectClassDefinition binding
// contributed by every plugin's metatype XML documents, standing in for
// the metatype service's ctkMetaTypeInformation lookup.
//
// Loading the same PID twice (two files designating the same pid) is
// last-write-wins, since OSGi metatype XML does not otherwise define a
// conflict resolution rule for it.
type Registry struct {
	mu      sync.RWMutex
	byPID   map[string]*entry
	byFPID  map[string]*entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byPID: make(map[string]*entry), byFPID: make(map[string]*entry)}
}

// LoadPlugin parses every metatype XML document read from docs as having
// been contributed by plugin (its location, for diagnostics), and
// optionally loads a localization bundle for %-prefixed name/description
// strings.
func (reg *Registry) LoadPlugin(plugin string, bundle *Bundle, docs ...io.Reader) error {
	for _, doc := range docs {
		result, err := Parse(doc)
		if err != nil {
			return fmt.Errorf("metatype: plugin %s: %w", plugin, err)
		}
		reg.mu.Lock()
		for _, d := range result.Designates {
			e := &entry{designate: d, plugin: plugin, bundle: bundle}
			if d.FactoryPID != "" {
				reg.byFPID[d.FactoryPID] = e
			} else {
				reg.byPID[d.PID] = e
			}
		}
		reg.mu.Unlock()
	}
	return nil
}

// Unload removes every binding contributed by plugin, e.g. when it is
// uninstalled.
func (reg *Registry) Unload(plugin string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for pid, e := range reg.byPID {
		if e.plugin == plugin {
			delete(reg.byPID, pid)
		}
	}
	for fpid, e := range reg.byFPID {
		if e.plugin == plugin {
			delete(reg.byFPID, fpid)
		}
	}
}

// ObjectClassDefinitionFor returns the (localized) OCD bound to pid, or
// ok=false if none was ever designated for it.
func (reg *Registry) ObjectClassDefinitionFor(pid string) (*ObjectClassDefinition, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	e, ok := reg.byPID[pid]
	if !ok {
		return nil, false
	}
	return localize(e.designate.OCD, e.bundle), true
}

// ObjectClassDefinitionForFactory returns the (localized) OCD bound to
// factoryPID, or ok=false if none was ever designated for it.
func (reg *Registry) ObjectClassDefinitionForFactory(factoryPID string) (*ObjectClassDefinition, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	e, ok := reg.byFPID[factoryPID]
	if !ok {
		return nil, false
	}
	return localize(e.designate.OCD, e.bundle), true
}

// localize returns a copy of ocd with every %-prefixed Name/Description
// resolved through bundle. A nil bundle returns ocd unmodified.
func localize(ocd *ObjectClassDefinition, bundle *Bundle) *ObjectClassDefinition {
	if bundle == nil {
		return ocd
	}
	out := &ObjectClassDefinition{
		ID:          ocd.ID,
		Name:        bundle.Resolve(ocd.Name),
		Description: bundle.Resolve(ocd.Description),
	}
	for _, ad := range ocd.required {
		out.AddAttributeDefinition(localizeAD(ad, bundle), true)
	}
	for _, ad := range ocd.optional {
		out.AddAttributeDefinition(localizeAD(ad, bundle), false)
	}
	return out
}

func localizeAD(ad *AttributeDefinition, bundle *Bundle) *AttributeDefinition {
	cp := *ad
	cp.Name = bundle.Resolve(ad.Name)
	cp.Description = bundle.Resolve(ad.Description)
	return &cp
}
