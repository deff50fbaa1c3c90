package configadmin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdStore persists Snapshots in an etcd cluster instead of the local
// filesystem, so every framework instance sharing a cluster sees the same
// configuration state — the shape registry.EtcdMirror gives the Service
// Registry (§4.D), applied here to Config-Admin's persisted records
// (§4.F) instead of to live service registrations.
//
// Unlike registry.EtcdMirror, a Snapshot is not lease-scoped: configuration
// is meant to outlive any one framework instance's process lifetime, so a
// Save/Delete pair (not a lease expiry) is what governs a key's lifetime.
type EtcdStore struct {
	client    *clientv3.Client
	namespace string
}

// EtcdStoreConfig configures an EtcdStore.
type EtcdStoreConfig struct {
	// Endpoints lists the etcd cluster members to dial. Required.
	Endpoints []string
	// Namespace prefixes every key this store writes, so several
	// frameworks can share one etcd cluster without colliding. Defaults
	// to "pluginfw".
	Namespace string
	// DialTimeout bounds the initial connection attempt. Defaults to 5s.
	DialTimeout time.Duration
}

// NewEtcdStore connects to the etcd cluster described by cfg and returns
// a ready-to-use Store. The caller must call Close when done.
func NewEtcdStore(cfg EtcdStoreConfig) (*EtcdStore, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("configadmin: etcd store endpoints cannot be empty")
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "pluginfw"
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("configadmin: failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := cli.Get(ctx, "health-check"); err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("configadmin: etcd health check failed: %w", err)
	}

	return &EtcdStore{client: cli, namespace: namespace}, nil
}

func (s *EtcdStore) key(pid string) string {
	return fmt.Sprintf("/%s/config/%s", s.namespace, pid)
}

// Load lists every Snapshot under this store's namespace prefix.
func (s *EtcdStore) Load() (map[string]Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	prefix := fmt.Sprintf("/%s/config/", s.namespace)
	resp, err := s.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("configadmin: failed to load configurations: %w", err)
	}

	out := make(map[string]Snapshot, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var snap Snapshot
		if err := json.Unmarshal(kv.Value, &snap); err != nil || snap.PID == "" {
			continue
		}
		out[snap.PID] = snap
	}
	return out, nil
}

// Save upserts snap under pid's key.
func (s *EtcdStore) Save(pid string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = s.client.Put(ctx, s.key(pid), string(data))
	return err
}

// Delete removes pid's key. Deleting an already-absent pid is not an
// error, matching FileStore.
func (s *EtcdStore) Delete(pid string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.client.Delete(ctx, s.key(pid))
	return err
}

// Close releases the underlying etcd client.
func (s *EtcdStore) Close() error {
	return s.client.Close()
}
