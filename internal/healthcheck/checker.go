package healthcheck

import "context"

const (
	// StatusOK indicates check passed.
	StatusOK = "ok"
	// StatusWarn indicates check completed with warning.
	StatusWarn = "warn"
	// StatusError indicates check failed.
	StatusError = "error"
)

// CheckResult is one runtime check item produced by a checker.
type CheckResult struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Status   string         `json:"status"`
	Summary  string         `json:"summary"`
	Detail   string         `json:"detail,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Checker evaluates one or more runtime checks.
type Checker interface {
	ListChecks(ctx context.Context) []CheckResult
}

// Run evaluates every checker in order.
func Run(ctx context.Context, checkers ...Checker) []CheckResult {
	out := []CheckResult{}
	for _, c := range checkers {
		if c == nil {
			continue
		}
		out = append(out, c.ListChecks(ctx)...)
	}
	return out
}

// Worst returns the most severe status in items.
func Worst(items []CheckResult) string {
	worst := StatusOK
	for _, item := range items {
		switch item.Status {
		case StatusError:
			return StatusError
		case StatusWarn:
			worst = StatusWarn
		}
	}
	return worst
}
