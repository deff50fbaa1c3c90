// Package configadmin implements the Config-Admin service (spec §4.F):
// persistent, PID-keyed configuration management for plugins, delivered
// asynchronously to ManagedService/ManagedServiceFactory implementations
// in registration order, filtered and rewritten by an ordered chain of
// ConfigurationPlugin interceptors, and observable through
// ConfigurationListener.
//
// # Registering for configuration
//
// A plugin registers a ManagedService under a PID:
//
//	props, _ := props.New(props.E("service.pid", props.String("com.example.thing")))
//	reg.Register("com.example.plugin", []string{"ManagedService"}, myManagedService{}, props)
//
// configadmin's internal tracker picks it up, binds the PID to the
// plugin's location, and calls Updated with the PID's current properties
// (or an empty Map if none exist yet).
//
// # Changing configuration
//
// Any plugin holding a PluginFacade can look up or create a PID's
// Configuration and update it:
//
//	facade := admin.Facade("com.example.caller")
//	cfg, _ := facade.GetConfiguration("com.example.thing")
//	properties, _ := props.New(props.E("timeout", props.Int(30)))
//	cfg.Update(properties)
//
// # Factory configurations
//
// A ManagedServiceFactory instead registers for a factory PID and
// receives one call per minted instance PID:
//
//	instance, _ := facade.CreateFactoryConfiguration("com.example.worker")
//	instance.Update(properties)
package configadmin
