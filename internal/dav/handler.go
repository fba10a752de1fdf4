package dav

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/filecomments/internal/comment"
	"github.com/evcraddock/filecomments/internal/metrics"
	"github.com/evcraddock/filecomments/internal/report"
)

func init() {
	chi.RegisterMethod(MethodPropPatch)
	chi.RegisterMethod(MethodReport)
}

// maxBodyBytes caps request bodies; messages are at most 1000 characters.
const maxBodyBytes = 100 * 1024

// Store is the comment store the adapter drives.
type Store interface {
	Create(nc comment.NewComment) (*comment.Comment, error)
	Get(id int64) (*comment.Comment, error)
	UpdateMessage(id int64, message string) error
	Delete(id int64) error
}

// Reporter answers REPORT queries.
type Reporter interface {
	Report(q report.Query) ([]report.Result, error)
}

// Options configures a Handler.
type Options struct {
	// BasePath is the URL prefix the handler is mounted under, used to
	// build Content-Location and href values.
	BasePath string
	// ObjectTypes lists the comment collections served. Defaults to "files".
	ObjectTypes []string
	// Targets, when set, makes REPORT on an unknown target a 404.
	Targets comment.TargetChecker
	Metrics *metrics.Metrics
}

// Handler serves the comments protocol.
type Handler struct {
	store       Store
	reporter    Reporter
	targets     comment.TargetChecker
	metrics     *metrics.Metrics
	basePath    string
	objectTypes map[string]bool
	router      chi.Router
}

// NewHandler creates a comments protocol handler.
func NewHandler(store Store, reporter Reporter, opts Options) *Handler {
	types := opts.ObjectTypes
	if len(types) == 0 {
		types = []string{"files"}
	}

	h := &Handler{
		store:       store,
		reporter:    reporter,
		targets:     opts.Targets,
		metrics:     opts.Metrics,
		basePath:    strings.TrimRight(opts.BasePath, "/"),
		objectTypes: make(map[string]bool, len(types)),
	}
	for _, t := range types {
		h.objectTypes[t] = true
	}

	r := chi.NewRouter()
	r.MethodNotAllowed(h.MethodNotAllowed)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, fmt.Errorf("%s: %w", r.URL.Path, errNoSuchCollection))
	})
	r.HandleFunc("/comments/{objectType}/{objectID}", h.serve)
	r.HandleFunc("/comments/{objectType}/{objectID}/", h.serve)
	r.HandleFunc("/comments/{objectType}/{objectID}/{commentID}", h.serve)
	h.router = r

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// MethodNotAllowed writes a 405 DAV error with the methods the addressed
// resource supports. Routers mounting the handler use it for methods they
// do not know.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, fmt.Errorf("%s: %w", r.Method, ErrMethodNotSupported))
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// serve parses the request into its kind and path parameters and
// dispatches it.
func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	req, err := h.parseRequest(r)
	if err != nil {
		writeError(rec, r, err)
	} else {
		h.dispatch(rec, r, req)
	}

	h.metrics.ObserveRequest(req.kind.String(), rec.status, time.Since(start))
}

func (h *Handler) parseRequest(r *http.Request) (request, error) {
	kind, err := ParseKind(r.Method)
	if err != nil {
		return request{}, err
	}
	req := request{
		kind:       kind,
		objectType: chi.URLParam(r, "objectType"),
		objectID:   chi.URLParam(r, "objectID"),
	}

	if !h.objectTypes[req.objectType] {
		return req, fmt.Errorf("object type %q: %w", req.objectType, errNoSuchCollection)
	}

	rawID := chi.URLParam(r, "commentID")
	if kind.addressesComment() != (rawID != "") {
		return req, fmt.Errorf("%s on %s: %w", r.Method, r.URL.Path, ErrMethodNotSupported)
	}
	if rawID != "" {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			return req, fmt.Errorf("comment %q: %w", rawID, comment.ErrNotFound)
		}
		req.commentID = id
	}

	return req, nil
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, req request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	switch req.kind {
	case KindCreate:
		h.create(w, r, req)
	case KindEdit:
		h.edit(w, r, req)
	case KindDelete:
		h.delete(w, r, req)
	case KindReport:
		h.report(w, r, req)
	default:
		writeError(w, r, ErrMethodNotSupported)
	}
}

// lookup returns the addressed comment, treating a comment that belongs to
// a different target as absent.
func (h *Handler) lookup(req request) (*comment.Comment, error) {
	c, err := h.store.Get(req.commentID)
	if err != nil {
		return nil, err
	}
	if c.ObjectType != req.objectType || c.ObjectID != req.objectID {
		return nil, fmt.Errorf("comment %d on %s/%s: %w", req.commentID, req.objectType, req.objectID, comment.ErrNotFound)
	}
	return c, nil
}

func (h *Handler) collectionPath(objectType, objectID string) string {
	return h.basePath + "/comments/" + objectType + "/" + objectID + "/"
}

func (h *Handler) commentPath(objectType, objectID string, id int64) string {
	return h.collectionPath(objectType, objectID) + strconv.FormatInt(id, 10)
}

// allowFor lists the methods valid on the resource addressed by r.
func allowFor(r *http.Request) string {
	if chi.URLParam(r, "commentID") != "" || isCommentPath(r.URL.Path) {
		return KindDelete.Method() + ", " + KindEdit.Method()
	}
	return KindCreate.Method() + ", " + KindReport.Method()
}

// isCommentPath reports whether path has a segment after comments/{type}/{id}.
func isCommentPath(path string) bool {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		if s == "comments" {
			return len(segments)-i > 3
		}
	}
	return false
}
