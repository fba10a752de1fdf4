package dav

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/evcraddock/filecomments/internal/auth"
	"github.com/evcraddock/filecomments/internal/comment"
)

const (
	actorTypeUsers = "users"
	verbComment    = "comment"
)

// createPayload is the JSON body of a create request. Pointer fields
// distinguish absent values from empty ones.
type createPayload struct {
	ActorID          *string `json:"actorId"`
	ActorDisplayName *string `json:"actorDisplayName"`
	ActorType        *string `json:"actorType"`
	Verb             *string `json:"verb"`
	Message          *string `json:"message"`
	CreationDateTime *string `json:"creationDateTime"`
	ObjectType       *string `json:"objectType"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, req request) {
	nc, err := parseCreate(r, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.store.Create(nc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.metrics != nil {
		h.metrics.CommentsCreated.Inc()
	}

	w.Header().Set("Content-Location", h.commentPath(c.ObjectType, c.ObjectID, c.ID))
	w.WriteHeader(http.StatusCreated)
}

// parseCreate validates a create body and resolves the comment's author.
func parseCreate(r *http.Request, req request) (comment.NewComment, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return comment.NewComment{}, fmt.Errorf("content type %q: %w", ct, ErrUnsupportedMediaType)
		}
	}

	var p createPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return comment.NewComment{}, fmt.Errorf("decoding body: %w: %w", ErrMalformedPayload, err)
	}

	nc := comment.NewComment{
		ObjectType: req.objectType,
		ObjectID:   req.objectID,
		ActorType:  actorTypeUsers,
		Verb:       verbComment,
	}

	if p.Message == nil {
		return nc, fmt.Errorf("message is required: %w", ErrMalformedPayload)
	}
	nc.Message = *p.Message

	if p.ObjectType != nil && *p.ObjectType != req.objectType {
		return nc, fmt.Errorf("objectType %q does not match %q: %w", *p.ObjectType, req.objectType, ErrMalformedPayload)
	}
	if p.Verb != nil && *p.Verb != verbComment {
		return nc, fmt.Errorf("verb %q: %w", *p.Verb, ErrMalformedPayload)
	}
	if p.ActorType != nil && *p.ActorType != actorTypeUsers {
		return nc, fmt.Errorf("actorType %q: %w", *p.ActorType, ErrMalformedPayload)
	}

	if p.CreationDateTime != nil {
		t, err := parseTime(*p.CreationDateTime)
		if err != nil {
			return nc, err
		}
		nc.CreationDateTime = t
	}

	if u := auth.UserFromContext(r.Context()); u != nil {
		nc.ActorID = u.ID
		nc.ActorDisplayName = u.DisplayName
		return nc, nil
	}

	if p.ActorID == nil || *p.ActorID == "" {
		return nc, fmt.Errorf("actorId is required: %w", ErrMalformedPayload)
	}
	nc.ActorID = *p.ActorID
	nc.ActorDisplayName = nc.ActorID
	if p.ActorDisplayName != nil && *p.ActorDisplayName != "" {
		nc.ActorDisplayName = *p.ActorDisplayName
	}
	return nc, nil
}

// parseTime accepts HTTP dates (RFC 1123 and its legacy forms) and RFC 3339.
func parseTime(s string) (time.Time, error) {
	if t, err := http.ParseTime(s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC1123Z, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("creationDateTime %q: %w", s, ErrMalformedPayload)
}
