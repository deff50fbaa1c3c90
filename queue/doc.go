// Package queue provides an optional Redis pub/sub bridge that republishes
// configadmin's CM_UPDATED/CM_DELETED events as generic eventadmin-style
// events (spec §4.F "Events", §6 "Event topics"), for deployments running
// more than one framework instance against a shared configuration store.
//
// # Topics
//
// Events are published on:
//   - org/commontk/service/cm/ConfigurationEvent/CM_UPDATED
//   - org/commontk/service/cm/ConfigurationEvent/CM_DELETED
//
// each carrying the PID, optional factory PID, and the canonical service
// properties (objectclass, service.id) of the ConfigurationAdmin
// registration that raised the event.
//
// # Usage
//
// A configadmin.Admin is built without any bridge by default; attaching
// one is opt-in:
//
//	client, err := queue.NewRedisClient(queue.RedisOptions{URL: "redis://localhost:6379"})
//	admin.SetBridge(client)
//
// Subscribing elsewhere:
//
//	events, err := client.Subscribe(ctx, queue.ConfigurationEvent{Type: queue.CMUpdated}.Topic())
package queue
