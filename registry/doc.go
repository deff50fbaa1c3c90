// See registry.go for the in-process Registry, events.go for the
// ServiceEvent/FrameworkEvent sum types, listener.go for dispatch, and
// mirror.go/mirror_client.go for the optional etcd-backed cross-instance
// mirror.
package registry
