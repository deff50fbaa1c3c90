package bundle

import (
	"context"
	"fmt"
	"sync"

	"github.com/corectk/pluginfw/fwerr"
)

// State is one of the plugin lifecycle states named in the spec's
// GLOSSARY Plugin entry.
type State int

const (
	Installed State = iota
	Resolved
	Starting
	Active
	Stopping
	Uninstalled
)

func (s State) String() string {
	switch s {
	case Installed:
		return "INSTALLED"
	case Resolved:
		return "RESOLVED"
	case Starting:
		return "STARTING"
	case Active:
		return "ACTIVE"
	case Stopping:
		return "STOPPING"
	case Uninstalled:
		return "UNINSTALLED"
	default:
		return "UNKNOWN"
	}
}

// Activator is the plugin-supplied hook invoked on Start and Stop, the
// same role the teacher's Config.initFunc/shutdownFunc pair played for a
// single plugin instance, generalized here to a named lifecycle state
// machine instead of a single initialized bool.
type Activator interface {
	// Start is called once, while the plugin transitions from Resolved
	// to Active. Services the plugin registers should be registered
	// here.
	Start(ctx context.Context) error
	// Stop is called once, while the plugin transitions from Active back
	// to Resolved. Services registered in Start should be unregistered
	// here.
	Stop(ctx context.Context) error
}

// Plugin guards one manifest's lifecycle transitions, rejecting
// out-of-order calls (starting an already-active plugin, stopping one
// that never started) the way the teacher's sdkPlugin rejected a second
// Initialize or a Shutdown before Initialize.
type Plugin struct {
	mu        sync.Mutex
	manifest  *Manifest
	activator Activator
	state     State
}

// New creates a Plugin in the Installed state for manifest, to be driven
// through Resolve/Start/Stop/Uninstall.
func New(manifest *Manifest, activator Activator) *Plugin {
	return &Plugin{manifest: manifest, activator: activator, state: Installed}
}

// Manifest returns the plugin's manifest.
func (p *Plugin) Manifest() *Manifest {
	return p.manifest
}

// State returns the plugin's current lifecycle state.
func (p *Plugin) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Resolve transitions an Installed plugin to Resolved once its
// Dependencies are known to be satisfiable. Callers (typically a
// plugin-dependency resolver, not implemented here) are responsible for
// checking Dependencies before calling Resolve.
func (p *Plugin) Resolve() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Installed {
		return fwerr.IllegalStatef("bundle", "Resolve", "plugin %s is %s, not INSTALLED", p.manifest.Name, p.state)
	}
	p.state = Resolved
	return nil
}

// Start transitions a Resolved plugin through Starting to Active,
// invoking the activator's Start hook. Starting an already-active plugin,
// or one that has not been resolved, is an IllegalState error.
func (p *Plugin) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.state != Resolved {
		state := p.state
		p.mu.Unlock()
		return fwerr.IllegalStatef("bundle", "Start", "plugin %s is %s, not RESOLVED", p.manifest.Name, state)
	}
	p.state = Starting
	p.mu.Unlock()

	if err := p.activator.Start(ctx); err != nil {
		p.mu.Lock()
		p.state = Resolved
		p.mu.Unlock()
		return fwerr.UserCallbackErrorf("bundle", "Start", "plugin %s activator failed: %v", p.manifest.Name, err)
	}

	p.mu.Lock()
	p.state = Active
	p.mu.Unlock()
	return nil
}

// Stop transitions an Active plugin through Stopping back to Resolved,
// invoking the activator's Stop hook. Stopping a plugin that is not
// Active is an IllegalState error.
func (p *Plugin) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state != Active {
		state := p.state
		p.mu.Unlock()
		return fwerr.IllegalStatef("bundle", "Stop", "plugin %s is %s, not ACTIVE", p.manifest.Name, state)
	}
	p.state = Stopping
	p.mu.Unlock()

	stopErr := p.activator.Stop(ctx)

	p.mu.Lock()
	p.state = Resolved
	p.mu.Unlock()

	if stopErr != nil {
		return fwerr.UserCallbackErrorf("bundle", "Stop", "plugin %s activator failed: %v", p.manifest.Name, stopErr)
	}
	return nil
}

// HealthChecker is an optional Activator extension. A plugin whose
// Activator implements it contributes its own status to Plugin.Health
// instead of being judged by lifecycle state alone.
type HealthChecker interface {
	Health() HealthStatus
}

// Health reports the plugin's operational status. An Active plugin is
// healthy by default; any other state is reported degraded or
// unhealthy. If the plugin's Activator implements HealthChecker, its
// reported status is folded in via combineHealth, so a plugin that is
// ACTIVE but missing a required dependency still surfaces as unhealthy.
func (p *Plugin) Health() HealthStatus {
	baseline := lifecycleHealth(p.State(), p.manifest.Name)
	checker, ok := p.activator.(HealthChecker)
	if !ok {
		return baseline
	}
	return combineHealth(baseline, checker.Health())
}

func lifecycleHealth(state State, name string) HealthStatus {
	switch state {
	case Active:
		return newHealthyStatus(fmt.Sprintf("plugin %s is ACTIVE", name))
	case Uninstalled:
		return newUnhealthyStatus(fmt.Sprintf("plugin %s is UNINSTALLED", name), nil)
	default:
		return newDegradedStatus(fmt.Sprintf("plugin %s is %s, not ACTIVE", name, state), nil)
	}
}

// Uninstall permanently retires the plugin. A plugin must be Resolved or
// Installed (i.e. not Active) before it can be uninstalled.
func (p *Plugin) Uninstall() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Active || p.state == Starting || p.state == Stopping {
		return fwerr.IllegalStatef("bundle", "Uninstall", "plugin %s is %s; stop it first", p.manifest.Name, p.state)
	}
	p.state = Uninstalled
	return nil
}
