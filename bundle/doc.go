// See manifest.go for Manifest and LoadManifest, and lifecycle.go for
// State, Activator, and Plugin.
package bundle
