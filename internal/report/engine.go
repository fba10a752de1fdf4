package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/evcraddock/filecomments/internal/comment"
)

// ErrInvalidRange is returned for a negative limit or offset.
var ErrInvalidRange = errors.New("limit and offset must be non-negative")

// Lister lists the comments on a target in creation order.
type Lister interface {
	ListByTarget(objectType, objectID string) ([]*comment.Comment, error)
}

// Query selects a page of comments on one target.
type Query struct {
	ObjectType string
	ObjectID   string
	// Limit caps the page size; nil means all remaining comments.
	Limit  *int
	Offset int
	// Since, when set, drops comments created before it.
	Since *time.Time
	// Props restricts the returned properties; empty means all.
	Props []PropName
}

// Engine evaluates report queries against a comment store.
type Engine struct {
	store Lister
}

// NewEngine creates a report engine over store.
func NewEngine(store Lister) *Engine {
	return &Engine{store: store}
}

// Report returns the page [offset, offset+limit) of the target's comments,
// clipped to what exists. It never pads and never errors on a short page.
func (e *Engine) Report(q Query) ([]Result, error) {
	if q.Offset < 0 || (q.Limit != nil && *q.Limit < 0) {
		return nil, ErrInvalidRange
	}

	comments, err := e.store.ListByTarget(q.ObjectType, q.ObjectID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	if q.Since != nil {
		comments = since(comments, *q.Since)
	}

	start, end := window(len(comments), q.Offset, q.Limit)

	results := make([]Result, 0, end-start)
	for _, c := range comments[start:end] {
		results = append(results, Properties(c, q.Props))
	}
	return results, nil
}

// window clips [offset, offset+limit) to [0, total).
func window(total, offset int, limit *int) (int, int) {
	if offset >= total {
		return total, total
	}
	end := total
	if limit != nil && *limit < total-offset {
		end = offset + *limit
	}
	return offset, end
}

func since(comments []*comment.Comment, t time.Time) []*comment.Comment {
	var out []*comment.Comment
	for _, c := range comments {
		if !c.CreationDateTime.Before(t) {
			out = append(out, c)
		}
	}
	return out
}
