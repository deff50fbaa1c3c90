package bundle

import "fmt"

// HealthStatus reports a plugin's operational status, the result type of
// Plugin.Health and HealthChecker.Health.
type HealthStatus struct {
	Status  healthState
	Message string
	Details map[string]any
}

type healthState int

const (
	healthHealthy healthState = iota
	healthDegraded
	healthUnhealthy
)

// IsHealthy reports whether the status is healthy.
func (h HealthStatus) IsHealthy() bool { return h.Status == healthHealthy }

// IsDegraded reports whether the status is degraded.
func (h HealthStatus) IsDegraded() bool { return h.Status == healthDegraded }

// IsUnhealthy reports whether the status is unhealthy.
func (h HealthStatus) IsUnhealthy() bool { return h.Status == healthUnhealthy }

func newHealthyStatus(message string) HealthStatus {
	return HealthStatus{Status: healthHealthy, Message: message}
}

func newDegradedStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{Status: healthDegraded, Message: message, Details: details}
}

func newUnhealthyStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{Status: healthUnhealthy, Message: message, Details: details}
}

// combineHealth folds several HealthStatus values into one: unhealthy if
// any input is unhealthy, else degraded if any is degraded, else healthy.
// Used by Plugin.Health to fold a HealthChecker Activator's own reported
// status in alongside the plugin's lifecycle-state baseline.
func combineHealth(checks ...HealthStatus) HealthStatus {
	var unhealthy, degraded []string
	for _, c := range checks {
		switch c.Status {
		case healthUnhealthy:
			unhealthy = append(unhealthy, c.Message)
		case healthDegraded:
			degraded = append(degraded, c.Message)
		}
	}
	if len(unhealthy) > 0 {
		return newUnhealthyStatus(
			fmt.Sprintf("%d of %d check(s) unhealthy", len(unhealthy), len(checks)),
			map[string]any{"unhealthy": unhealthy},
		)
	}
	if len(degraded) > 0 {
		return newDegradedStatus(
			fmt.Sprintf("%d of %d check(s) degraded", len(degraded), len(checks)),
			map[string]any{"degraded": degraded},
		)
	}
	return newHealthyStatus(fmt.Sprintf("all %d check(s) healthy", len(checks)))
}
