package replay

import "context"

// Query defines filters for retrieving frames. Minutes are inclusive; a zero
// To means no upper bound and a zero Limit returns every match.
type Query struct {
	RunID string
	From  int
	To    int
	Limit int
}

// Match reports whether f satisfies the filters, Limit excluded.
func (q Query) Match(f Frame) bool {
	if q.RunID != "" && f.RunID != q.RunID {
		return false
	}
	if f.Minute < q.From {
		return false
	}
	if q.To > 0 && f.Minute > q.To {
		return false
	}
	return true
}

func (q Query) full(n int) bool { return q.Limit > 0 && n >= q.Limit }

// Store persists frames and supports querying them back in append order.
type Store interface {
	Append(ctx context.Context, f Frame) error
	Query(ctx context.Context, q Query) ([]Frame, error)
	Close() error
}
