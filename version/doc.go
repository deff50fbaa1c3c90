// Package version is documented in version.go; see the Version type for
// the four-part major.minor.micro.qualifier identifier used throughout the
// framework for plugin and bundle versioning.
package version
