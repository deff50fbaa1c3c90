package configadmin

import (
	"sort"
	"sync"

	"github.com/corectk/pluginfw/props"
	"github.com/corectk/pluginfw/registry"
)

// configurationPluginClass is the class name ConfigurationPlugin
// implementations register under, matching ctkCMPluginManager's
// _PluginTracker class.
const configurationPluginClass = "ConfigurationPlugin"

const (
	propCMRanking = "cm.ranking"
	propCMTarget  = "cm.target"
)

// ConfigurationPlugin intercepts configuration dictionaries before they
// are delivered to a ManagedService or ManagedServiceFactory, letting a
// plugin inject or rewrite properties (e.g. decrypt a secret, stamp an
// environment tag), grounded on ctkConfigurationPlugin /
// ctkCMPluginManager.
type ConfigurationPlugin interface {
	// ModifyConfiguration mutates properties in place by returning a
	// replacement Map for the given PID's delivery. ref is the
	// ConfigurationAdmin service's own reference, for plugins that want
	// to look up ConfigurationAdmin via the registry themselves.
	ModifyConfiguration(ref registry.Reference, pid string, properties *props.Map) *props.Map
}

// pluginChain tracks every registered ConfigurationPlugin, ordered
// ascending by its cm.ranking property (default 0), matching
// ctkCMPluginManager's std::set ordering.
type pluginChain struct {
	mu      sync.RWMutex
	entries []registry.Reference
}

func (c *pluginChain) add(ref registry.Reference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, ref)
	sort.SliceStable(c.entries, func(i, j int) bool {
		return cmRankingOf(c.entries[i]) < cmRankingOf(c.entries[j])
	})
}

func (c *pluginChain) remove(ref registry.Reference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.entries {
		if e.ServiceID() == ref.ServiceID() {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

func (c *pluginChain) snapshot() []registry.Reference {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]registry.Reference, len(c.entries))
	copy(out, c.entries)
	return out
}

func cmRankingOf(ref registry.Reference) int {
	v, ok := ref.Properties().Get(propCMRanking)
	if !ok {
		return 0
	}
	f, ok := v.NumericValue()
	if !ok {
		return 0
	}
	return int(f)
}

// apply runs properties through every registered ConfigurationPlugin in
// ranking order, skipping any plugin whose cm.target property is a
// string list that does not contain pid (ctkCMPluginManager::
// modifyConfiguration). A plugin panicking is isolated the same way
// registry listener dispatch is: it is logged and skipped rather than
// aborting the chain.
func (a *Admin) apply(pid string, properties *props.Map) *props.Map {
	if properties.Len() == 0 {
		return properties
	}
	for _, ref := range a.plugins.snapshot() {
		if target, ok := ref.Properties().Get(propCMTarget); ok {
			if list := target.StringListValue(); list != nil && !containsFold(list, pid) {
				continue
			}
		}
		properties = a.callPlugin(ref, pid, properties)
	}
	return properties
}

func (a *Admin) callPlugin(ref registry.Reference, pid string, properties *props.Map) (result *props.Map) {
	svc, err := a.registry.GetService(ref)
	if err != nil {
		return properties
	}
	plugin, ok := svc.(ConfigurationPlugin)
	if !ok {
		return properties
	}
	result = properties
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("configadmin: configuration plugin panicked", "pid", pid, "plugin", ref.Plugin(), "panic", r)
			result = properties
		}
	}()
	if mutated := plugin.ModifyConfiguration(a.selfRef, pid, properties); mutated != nil {
		result = mutated
	}
	return result
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
