package dav

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/evcraddock/filecomments/internal/comment"
	"github.com/evcraddock/filecomments/internal/report"
)

var (
	// ErrMethodNotSupported indicates the method is not a comments operation
	// on the addressed resource
	ErrMethodNotSupported = errors.New("method not supported")

	// ErrMalformedPayload indicates the request body could not be parsed into the expected fields
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrUnsupportedMediaType indicates a create body that is not JSON
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// errNoSuchCollection indicates an unknown object type or target in the path
	errNoSuchCollection = errors.New("comments collection not found")
)

// statusFor maps an adapter, store or engine error to a status code and
// exception name.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "RequestEntityTooLarge"
	case errors.Is(err, ErrMethodNotSupported):
		return http.StatusMethodNotAllowed, "MethodNotAllowed"
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType, "UnsupportedMediaType"
	case errors.Is(err, ErrMalformedPayload),
		errors.Is(err, report.ErrInvalidRange),
		errors.Is(err, comment.ErrMessageTooLong):
		return http.StatusBadRequest, "BadRequest"
	case errors.Is(err, comment.ErrInvalidTarget):
		return http.StatusBadRequest, "InvalidTarget"
	case comment.IsNotFound(err), errors.Is(err, errNoSuchCollection):
		return http.StatusNotFound, "NotFound"
	default:
		return http.StatusInternalServerError, "InternalServerError"
	}
}

// writeError writes a DAV error document for err.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, exception := statusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		// Don't leak internal error details to clients
		slog.ErrorContext(r.Context(), "comments request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		msg = "An internal error occurred"
	}

	if status == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", allowFor(r))
	}

	w.Header().Set("Content-Type", xmlContentType)
	w.WriteHeader(status)
	if werr := encodeError(w, exception, msg); werr != nil {
		slog.WarnContext(r.Context(), "writing error response", "error", werr)
	}
}
