// See executor.go for Executor and Submit; the package has no other
// exported surface.
package dispatch
