package registry

import "time"

// MirrorEntry is the read-only view of a registered service published to
// the optional distributed mirror (SPEC_FULL §4.D EXPANSION). It carries
// just enough of a registration to let another framework instance discover
// a peer's published services; it is never the instance's own source of
// truth for that registration.
type MirrorEntry struct {
	Class        string            `json:"class"`
	ServiceID    int64             `json:"service_id"`
	Ranking      int               `json:"ranking"`
	Plugin       string            `json:"plugin"`
	Properties   map[string]string `json:"properties"`
	RegisteredAt time.Time         `json:"registered_at"`
}

// Mirror publishes REGISTERED/MODIFIED/UNREGISTERING transitions to a
// shared namespace so other framework instances can discover services
// registered here. It is strictly a read-only fan-out: the in-process
// Registry remains every instance's sole source of truth (spec §9 —
// "framework-instance-scoped").
type Mirror interface {
	// Publish upserts entry under its class and service ID.
	Publish(entry MirrorEntry) error
	// Retract removes entry for the given class/service ID.
	Retract(class string, serviceID int64) error
	// Discover lists every mirrored entry currently published for class.
	Discover(class string) ([]MirrorEntry, error)
	// Close releases the mirror's resources.
	Close() error
}

// MirrorConfig configures the optional etcd-backed Mirror.
type MirrorConfig struct {
	// Endpoints is the list of etcd endpoints.
	Endpoints []string
	// Namespace prefixes every key written by the mirror.
	// Default: "pluginfw".
	Namespace string
	// TTL is the lease time-to-live in seconds for mirrored entries.
	// Default: 30.
	TTL int
	// TLS holds optional TLS configuration for the etcd connection.
	TLS *TLSConfig
}

// TLSConfig holds TLS certificate configuration for secure mirror
// communication.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
	CAFile   string
}
