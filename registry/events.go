package registry

// EventKind distinguishes the four service-event kinds from spec §4.D.
type EventKind int

const (
	// Registered is dispatched immediately after Register.
	Registered EventKind = iota
	// Modified is dispatched after SetProperties changes a registration's
	// properties.
	Modified
	// ModifiedEndmatch is dispatched to a listener instead of Modified
	// when its filter matched before the change but no longer matches
	// after it.
	ModifiedEndmatch
	// Unregistering is dispatched after a registration has been removed
	// from the registry's lookup indices (GetReference/GetReferences no
	// longer return it) but before it is marked unregistered, so
	// listeners can still obtain the service via GetService during
	// teardown.
	Unregistering
)

func (k EventKind) String() string {
	switch k {
	case Registered:
		return "REGISTERED"
	case Modified:
		return "MODIFIED"
	case ModifiedEndmatch:
		return "MODIFIED_ENDMATCH"
	case Unregistering:
		return "UNREGISTERING"
	default:
		return "UNKNOWN"
	}
}

// ServiceEvent describes a single registration lifecycle transition,
// delivered synchronously to every matching listener.
type ServiceEvent struct {
	Kind      EventKind
	Reference Reference
}

// FrameworkEventKind distinguishes framework-level diagnostics, as
// opposed to per-service events.
type FrameworkEventKind int

const (
	// PluginError reports that a listener callback panicked while being
	// dispatched (spec §7: UserCallbackError).
	PluginError FrameworkEventKind = iota
)

// FrameworkEvent reports a framework-level condition, most commonly a
// listener callback failure isolated by the registry's dispatch loop.
type FrameworkEvent struct {
	Kind   FrameworkEventKind
	Plugin string
	Error  error
}

// FrameworkListener receives FrameworkEvents. Registries with no
// FrameworkListener attached simply drop PluginError events after
// recovering from the panic.
type FrameworkListener interface {
	FrameworkEvent(evt FrameworkEvent)
}
