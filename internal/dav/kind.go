// Package dav adapts the comment store and report engine to the DAV
// comments protocol: POST creates, PROPPATCH edits, DELETE removes and
// REPORT lists comments on a file or folder.
package dav

import (
	"fmt"
	"net/http"
)

// Extension methods used by the comments protocol.
const (
	MethodPropPatch = "PROPPATCH"
	MethodReport    = "REPORT"
)

// RequestKind identifies which comment operation a request performs.
type RequestKind int

const (
	KindCreate RequestKind = iota + 1
	KindEdit
	KindDelete
	KindReport
)

var kindMethods = map[string]RequestKind{
	http.MethodPost:   KindCreate,
	MethodPropPatch:   KindEdit,
	http.MethodDelete: KindDelete,
	MethodReport:      KindReport,
}

// ParseKind maps an HTTP method to a request kind.
func ParseKind(method string) (RequestKind, error) {
	k, ok := kindMethods[method]
	if !ok {
		return 0, fmt.Errorf("%s: %w", method, ErrMethodNotSupported)
	}
	return k, nil
}

// String returns the metric label for the kind.
func (k RequestKind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindEdit:
		return "edit"
	case KindDelete:
		return "delete"
	case KindReport:
		return "report"
	default:
		return "unknown"
	}
}

// Method returns the HTTP method for the kind.
func (k RequestKind) Method() string {
	for m, kind := range kindMethods {
		if kind == k {
			return m
		}
	}
	return ""
}

// addressesComment reports whether the kind targets a single comment
// rather than a target's comment collection.
func (k RequestKind) addressesComment() bool {
	return k == KindEdit || k == KindDelete
}

// request is one parsed comments request.
type request struct {
	kind       RequestKind
	objectType string
	objectID   string
	commentID  int64
}
