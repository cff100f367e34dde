package utils

import (
	"context"
	"time"
)

// Timeouts for the raw *sql.DB plumbing queries (sessions, users,
// notifications, activity logs). The gorm side manages its own transaction
// deadlines; these bound everything that runs outside it.
const (
	// FastQueryTimeout bounds point lookups by key.
	FastQueryTimeout = 5 * time.Second
	// SlowQueryTimeout bounds paginated scans and bulk deletes.
	SlowQueryTimeout = 30 * time.Second
)

// FastQueryContext returns a context for a point lookup. A nil parent falls
// back to context.Background() so storage code callable outside a request
// still gets a deadline.
func FastQueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return queryContext(parent, FastQueryTimeout)
}

// SlowQueryContext returns a context for scans and bulk deletes.
func SlowQueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return queryContext(parent, SlowQueryTimeout)
}

func queryContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}
