// Package health serves liveness and readiness of the process and its
// backing services.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"commune/internal/transport/http/shared"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// Report is the readiness body. Failed checks carry their error text.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Checker runs named checks concurrently.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	timeout time.Duration
}

func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{checks: make(map[string]Check), timeout: timeout}
}

// Add registers check under name, replacing any previous one.
func (c *Checker) Add(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Names lists registered checks in order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes every check and returns the failures by name.
func (c *Checker) Run(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	var (
		mu       sync.Mutex
		failures = make(map[string]error)
		g        errgroup.Group
	)
	for name, check := range checks {
		g.Go(func() error {
			if err := check(ctx); err != nil {
				mu.Lock()
				failures[name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}

// Live always answers 200 while the process serves requests.
func Live(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, Report{Status: "ok"})
}

// Ready answers 200 when every check passes and 503 otherwise.
func (c *Checker) Ready(w http.ResponseWriter, r *http.Request) {
	failures := c.Run(r.Context())
	report := Report{Status: "ok", Checks: make(map[string]string)}
	for _, name := range c.Names() {
		report.Checks[name] = "ok"
	}
	status := http.StatusOK
	if len(failures) > 0 {
		report.Status = "unavailable"
		status = http.StatusServiceUnavailable
		for name, err := range failures {
			report.Checks[name] = err.Error()
		}
	}
	shared.WriteJSON(w, status, report)
}
