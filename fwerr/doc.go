// Package fwerr implements the five-member error taxonomy described by the
// framework's error handling design: InvalidArgument, IllegalState,
// NoSuchService, ConfigurationError, and UserCallbackError.
//
// Packages in this module raise framework-level failures (bad arguments,
// illegal states, missing services) as a *fwerr.Error so that callers can
// branch on the Class with errors.As, or test for a specific class with
// fwerr.IsClass; plain I/O and decoding failures are returned as ordinary
// wrapped errors:
//
//	if err := registry.Register(...); err != nil {
//	    if fwerr.IsClass(err, fwerr.InvalidArgument) {
//	        // malformed input, not a framework fault
//	    }
//	}
//
// Propagation policy (spec §7): errors at the framework/core boundary
// surface to the caller; errors raised inside user callbacks (listeners,
// tracker customizers, configuration-plugin interceptors, managed-service
// updates) never do — they are logged and, where applicable, reported as a
// framework error event instead.
package fwerr
