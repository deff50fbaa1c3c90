package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdMirror implements Mirror against an etcd cluster.
//
// Each mirrored entry is written under a lease with the configured TTL and
// kept alive by a background goroutine, so that a framework instance that
// crashes without calling Retract has its entries removed automatically
// once the lease expires — there is no separate reconciliation pass.
//
// Thread-safety: all methods are safe for concurrent use.
type EtcdMirror struct {
	client    *clientv3.Client
	namespace string
	ttl       int

	mu        sync.Mutex
	leases    map[string]clientv3.LeaseID
	cancelFns map[string]context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
	closedCh  chan struct{}
}

// NewEtcdMirror connects to the etcd cluster described by cfg and returns
// a ready-to-use Mirror. The caller must call Close when the mirror is no
// longer needed.
func NewEtcdMirror(cfg MirrorConfig) (*EtcdMirror, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("mirror endpoints cannot be empty")
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "pluginfw"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30
	}

	clientCfg := clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: 5 * time.Second,
	}
	if cfg.TLS != nil && cfg.TLS.Enabled {
		info, err := newTLSInfo(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
		tlsConfig, err := info.ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		clientCfg.TLS = tlsConfig
	}

	cli, err := clientv3.New(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := cli.Get(ctx, "health-check"); err != nil && err != context.DeadlineExceeded {
		cli.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	return &EtcdMirror{
		client:    cli,
		namespace: namespace,
		ttl:       ttl,
		leases:    make(map[string]clientv3.LeaseID),
		cancelFns: make(map[string]context.CancelFunc),
		closedCh:  make(chan struct{}),
	}, nil
}

// Publish upserts entry under a fresh lease, replacing any lease
// previously held for the same (class, service ID) pair.
func (m *EtcdMirror) Publish(entry MirrorEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("mirror is closed")
	}

	key := m.buildKey(entry.Class, entry.ServiceID)
	if cancel, ok := m.cancelFns[key]; ok {
		cancel()
		delete(m.cancelFns, key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lease, err := m.client.Grant(ctx, int64(m.ttl))
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal mirror entry: %w", err)
	}

	if _, err := m.client.Put(ctx, key, string(data), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("failed to publish mirror entry: %w", err)
	}

	m.leases[key] = lease.ID
	keepaliveCtx, keepaliveCancel := context.WithCancel(context.Background())
	m.cancelFns[key] = keepaliveCancel

	m.wg.Add(1)
	go m.keepalive(keepaliveCtx, lease.ID, key)
	return nil
}

// Retract removes the mirrored entry for (class, serviceID), revoking its
// lease and stopping its keepalive goroutine. A no-op if nothing was
// published for that key.
func (m *EtcdMirror) Retract(class string, serviceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("mirror is closed")
	}

	key := m.buildKey(class, serviceID)
	if cancel, ok := m.cancelFns[key]; ok {
		cancel()
		delete(m.cancelFns, key)
	}

	leaseID, ok := m.leases[key]
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.client.Revoke(ctx, leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	delete(m.leases, key)
	return nil
}

// Discover lists every mirrored entry currently published for class
// across every framework instance sharing this mirror's namespace.
func (m *EtcdMirror) Discover(class string) ([]MirrorEntry, error) {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("mirror is closed")
	}

	prefix := fmt.Sprintf("/%s/services/%s/", m.namespace, class)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := m.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover mirror entries: %w", err)
	}

	entries := make([]MirrorEntry, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var entry MirrorEntry
		if err := json.Unmarshal(kv.Value, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close revokes every lease held by this mirror and releases the
// underlying etcd client.
func (m *EtcdMirror) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for _, cancel := range m.cancelFns {
		cancel()
	}
	m.cancelFns = make(map[string]context.CancelFunc)
	close(m.closedCh)
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	leases := m.leases
	m.leases = make(map[string]clientv3.LeaseID)
	m.mu.Unlock()
	for _, leaseID := range leases {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, _ = m.client.Revoke(ctx, leaseID)
		cancel()
	}
	return m.client.Close()
}

func (m *EtcdMirror) keepalive(ctx context.Context, leaseID clientv3.LeaseID, key string) {
	defer m.wg.Done()

	interval := time.Duration(m.ttl) * time.Second / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.closedCh:
			return
		case <-ticker.C:
			if _, err := m.client.KeepAliveOnce(context.Background(), leaseID); err != nil {
				m.mu.Lock()
				delete(m.leases, key)
				delete(m.cancelFns, key)
				m.mu.Unlock()
				return
			}
		}
	}
}

func (m *EtcdMirror) buildKey(class string, serviceID int64) string {
	return fmt.Sprintf("/%s/services/%s/%d", m.namespace, class, serviceID)
}
