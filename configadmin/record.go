package configadmin

import (
	"github.com/corectk/pluginfw/props"
)

// reserved keys are stripped from whatever a caller hands to Update and
// reinserted by the Admin itself when rendering a Record's properties,
// mirroring ctkConfigurationImpl's updateDictionary.
const (
	propPID            = "service.pid"
	propFactoryPID     = "service.factoryPid"
	propPluginLocation = "service.pluginlocation"
)

// Record is a single PID's persistent configuration state: the Admin's
// in-memory analogue of ctkConfigurationImpl, minus its own lock (every
// Record is only ever touched while the owning Admin's mutex is held).
type Record struct {
	pid        string
	factoryPID string // empty for a non-factory configuration

	// location is the plugin location a caller declared when it first
	// asked for this PID (e.g. via GetConfigurationWithLocation). A
	// blank location means "any plugin may bind".
	location string

	bound       bool
	boundPlugin string // the location of the currently bound plugin, if bound

	user    *props.Map // caller-supplied properties, reserved keys stripped
	deleted bool
}

func newRecord(pid, factoryPID, location string) *Record {
	empty, _ := props.New()
	return &Record{pid: pid, factoryPID: factoryPID, location: location, user: empty}
}

// stripReserved removes the reserved service.pid/factoryPid/pluginlocation
// keys from a caller-supplied dictionary before it is stored, so callers
// cannot forge them.
func stripReserved(in *props.Map) *props.Map {
	if in == nil {
		empty, _ := props.New()
		return empty
	}
	out := in
	for _, k := range []string{propPID, propFactoryPID, propPluginLocation} {
		if out.Find(k) >= 0 {
			entries := make([]props.Entry, 0, out.Len())
			for _, e := range out.Entries() {
				if e.Key == k {
					continue
				}
				entries = append(entries, e)
			}
			out, _ = props.New(entries...)
		}
	}
	return out
}

// properties returns the user-visible dictionary: the caller's own
// properties plus service.pid (and service.factoryPid, for a factory
// instance). This is what Update delivers to ManagedService.Updated and
// to the ConfigurationPlugin chain, matching ctkConfigurationImpl's
// getProperties (which deliberately omits pluginlocation).
func (r *Record) properties() *props.Map {
	out := r.user.With(propPID, props.String(r.pid))
	if r.factoryPID != "" {
		out = out.With(propFactoryPID, props.String(r.factoryPID))
	}
	return out
}

// allProperties additionally includes service.pluginlocation when the
// record is bound, matching ctkConfigurationImpl::getAllProperties.
func (r *Record) allProperties() *props.Map {
	out := r.properties()
	if r.bound {
		out = out.With(propPluginLocation, props.String(r.boundPlugin))
	}
	return out
}

// bind attempts to bind the record to plugin's location, succeeding iff
// the record is not already bound and either no location was declared
// for it or the declared location matches plugin (ctkConfigurationImpl::
// bind).
func (r *Record) bind(plugin string) bool {
	if r.bound {
		return false
	}
	if r.location != "" && r.location != plugin {
		return false
	}
	r.bound = true
	r.boundPlugin = plugin
	return true
}

// unbind clears the record's binding, e.g. when its owning plugin is
// uninstalled.
func (r *Record) unbind() {
	r.bound = false
	r.boundPlugin = ""
}
