// Package pluginfw is a Go-native, dynamic plugin and service framework
// in the OSGi tradition: plugins install, resolve, and start
// independently; they publish and consume services through a shared
// Registry instead of linking against one another directly; and a
// plugin's configuration is delivered to it asynchronously whenever it
// changes, instead of being read once at startup.
//
// # Core Concepts
//
// The framework is organized around six cooperating components:
//
//   - version: a Version type with the comparison and range semantics
//     plugin dependency declarations need.
//   - ldapfilter: an RFC 1960 LDAP search filter parser and evaluator,
//     used to query services and configurations by property.
//   - props: an ordered, case-insensitive property map used for service
//     properties and configuration dictionaries.
//   - registry: the in-process Service Registry, where plugins publish
//     and look up services, and where ServiceListeners are notified of
//     registration changes.
//   - tracker: a Tracker that simplifies consuming services from the
//     registry, maintaining a ranked, ready-to-read view of every
//     currently matching reference.
//   - configadmin / metatype: persistent, PID-keyed configuration
//     delivered to ManagedService/ManagedServiceFactory plugins,
//     described by an optional XML attribute schema.
//
// bundle and dispatch are the framework's own supporting packages: bundle
// loads a plugin's manifest and guards its install/start/stop lifecycle;
// dispatch provides the per-key serialized executor configadmin uses to
// deliver configuration updates in order without blocking its caller.
//
// # Getting Started
//
//	reg := registry.New(registry.Config{})
//	admin, err := configadmin.New(reg, configadmin.NopStore{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer admin.Close()
//
//	fw := pluginfw.New(reg, admin, metatype.NewRegistry())
//
// # Installing a plugin
//
//	manifest, err := bundle.LoadManifest("./plugins/example")
//	if err != nil {
//		log.Fatal(err)
//	}
//	plug := bundle.New(manifest, myActivator{})
//	if err := fw.Install(plug); err != nil {
//		log.Fatal(err)
//	}
//	if err := fw.Start(ctx, manifest.Location); err != nil {
//		log.Fatal(err)
//	}
//
// # Error Handling
//
// Framework operations return fwerr.Error values, classified so callers
// can branch without string matching:
//
//	if fwerr.IsClass(err, fwerr.NoSuchService) {
//		// the reference was already unregistered
//	}
//
// # Thread Safety
//
// Every exported type in this module is safe for concurrent use unless
// its documentation says otherwise.
package pluginfw
