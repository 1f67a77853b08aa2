package observability

import (
	"context"
	"sync"
)

// HealthStatus is the state reported by a component or the whole service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"
)

// severity orders statuses so the worst one wins. Unknown values count as down.
func (s HealthStatus) severity() int {
	switch s {
	case HealthStatusUp:
		return 0
	case HealthStatusDegraded:
		return 1
	default:
		return 2
	}
}

// Health is the result of one component check.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ServiceHealth is the /health response body.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// HealthChecker is implemented by the chain catalog and the cache stores.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// AddComponent appends h and lowers the overall status to h's when h is worse.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)
	if sh.Status == "" || h.Status.severity() > sh.Status.severity() {
		sh.Status = h.Status
	}
}

// Check runs the checkers concurrently and reports them in the order given.
// The service is up when there are no checkers.
func Check(ctx context.Context, service, version string, checkers ...HealthChecker) *ServiceHealth {
	results := make([]Health, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Go(func() { results[i] = c.CheckHealth(ctx) })
	}
	wg.Wait()

	sh := &ServiceHealth{Service: service, Status: HealthStatusUp, Version: version}
	for _, h := range results {
		sh.AddComponent(h)
	}
	return sh
}
