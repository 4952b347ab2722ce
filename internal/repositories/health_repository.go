package repositories

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	domain "github.com/ateliedecor/api/internal/domain"
)

const defaultProbeTimeout = 1500 * time.Millisecond

// DependencyCheck probes one backing service during readiness checks.
// Timeout is optional; zero falls back to the repository default.
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// DependencyHealthOption adjusts the dependency-backed health repository.
type DependencyHealthOption func(*dependencyHealthRepository)

// WithDependencyTimeout sets the fallback timeout for checks without one.
func WithDependencyTimeout(timeout time.Duration) DependencyHealthOption {
	return func(repo *dependencyHealthRepository) {
		if timeout > 0 {
			repo.probeTimeout = timeout
		}
	}
}

// WithDependencyClock injects the clock, for tests.
func WithDependencyClock(clock func() time.Time) DependencyHealthOption {
	return func(repo *dependencyHealthRepository) {
		if clock != nil {
			repo.now = clock
		}
	}
}

type dependencyHealthRepository struct {
	checks       []DependencyCheck
	probeTimeout time.Duration
	now          func() time.Time
}

var _ HealthRepository = (*dependencyHealthRepository)(nil)

// NewDependencyHealthRepository builds a HealthRepository that probes the
// given dependencies on each Collect call.
func NewDependencyHealthRepository(checks []DependencyCheck, opts ...DependencyHealthOption) (HealthRepository, error) {
	if len(checks) == 0 {
		return nil, errors.New("health repository: at least one dependency check is required")
	}
	for _, check := range checks {
		if strings.TrimSpace(check.Name) == "" || check.Check == nil {
			return nil, errors.New("health repository: dependency checks require a name and a check function")
		}
	}

	repo := &dependencyHealthRepository{
		checks:       append([]DependencyCheck(nil), checks...),
		probeTimeout: defaultProbeTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

// Collect probes every dependency in parallel. A failing or timed-out
// probe degrades the report but never surfaces as a Collect error.
func (r *dependencyHealthRepository) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	if ctx == nil {
		return domain.SystemHealthReport{}, errors.New("health repository: context is required")
	}

	type outcome struct {
		name   string
		result domain.SystemHealthCheck
	}

	outcomes := make(chan outcome, len(r.checks))
	var wg sync.WaitGroup
	for _, check := range r.checks {
		wg.Add(1)
		go func(check DependencyCheck) {
			defer wg.Done()
			outcomes <- outcome{name: check.Name, result: r.probe(ctx, check)}
		}(check)
	}
	wg.Wait()
	close(outcomes)

	report := domain.SystemHealthReport{
		Status:      domain.HealthStatusOK,
		GeneratedAt: r.now().UTC(),
		Checks:      make(map[string]domain.SystemHealthCheck, len(r.checks)),
	}
	for out := range outcomes {
		report.Checks[out.name] = out.result
		if out.result.Status != domain.HealthStatusOK {
			report.Status = domain.HealthStatusDegraded
		}
	}
	return report, nil
}

func (r *dependencyHealthRepository) probe(ctx context.Context, check DependencyCheck) domain.SystemHealthCheck {
	timeout := check.Timeout
	if timeout <= 0 {
		timeout = r.probeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := r.now()
	err := check.Check(probeCtx)

	result := domain.SystemHealthCheck{
		Status:    domain.HealthStatusOK,
		Latency:   r.now().Sub(started),
		CheckedAt: started.UTC(),
	}
	if err != nil {
		result.Status = domain.HealthStatusDegraded
		result.Error = err.Error()
	}
	return result
}
