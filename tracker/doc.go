// See tracker.go for Tracker, New, and Customizer.
package tracker
