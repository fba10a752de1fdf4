package dav

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/evcraddock/filecomments/internal/report"
)

var messageProp = report.Name("message")

// patch is a decoded PROPPATCH body.
type patch struct {
	set    []rawProp
	remove []rawProp
}

func parsePatch(r *http.Request) (patch, error) {
	var pu propertyUpdate
	if err := xml.NewDecoder(r.Body).Decode(&pu); err != nil {
		return patch{}, fmt.Errorf("decoding propertyupdate: %w: %w", ErrMalformedPayload, err)
	}

	var p patch
	for _, c := range pu.Set {
		p.set = append(p.set, c.Prop.Props...)
	}
	for _, c := range pu.Remove {
		p.remove = append(p.remove, c.Prop.Props...)
	}
	if len(p.set) == 0 && len(p.remove) == 0 {
		return patch{}, fmt.Errorf("propertyupdate has no properties: %w", ErrMalformedPayload)
	}
	return p, nil
}

// statuses assigns a status to every property in the patch. Only setting
// oc:message is allowed; if anything else is present the whole patch fails
// and the message is reported as a failed dependency.
func (p patch) statuses() (props []propStatus, message *string) {
	forbidden := len(p.remove) > 0
	for _, rp := range p.set {
		if rp.name() == messageProp {
			text := rp.Text
			message = &text
			continue
		}
		forbidden = true
	}

	messageStatus := http.StatusOK
	if forbidden {
		messageStatus = http.StatusFailedDependency
	}

	seen := make(map[report.PropName]bool)
	add := func(name report.PropName, status int) {
		if seen[name] {
			return
		}
		seen[name] = true
		props = append(props, propStatus{name: name, status: status})
	}
	for _, rp := range p.set {
		if rp.name() == messageProp {
			add(messageProp, messageStatus)
		} else {
			add(rp.name(), http.StatusForbidden)
		}
	}
	for _, rp := range p.remove {
		add(rp.name(), http.StatusForbidden)
	}

	if forbidden {
		return props, nil
	}
	return props, message
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request, req request) {
	p, err := parsePatch(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.lookup(req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	props, message := p.statuses()
	if message != nil {
		if err := h.store.UpdateMessage(c.ID, *message); err != nil {
			writeError(w, r, err)
			return
		}
	}

	writeMultistatus(w, r, []propResponse{{
		href:  h.commentPath(c.ObjectType, c.ObjectID, c.ID),
		props: props,
	}})
}

// writeMultistatus writes a 207 response.
func writeMultistatus(w http.ResponseWriter, r *http.Request, responses []propResponse) {
	w.Header().Set("Content-Type", xmlContentType)
	w.WriteHeader(http.StatusMultiStatus)
	if err := encodeMultistatus(w, responses); err != nil {
		slog.WarnContext(r.Context(), "writing multistatus", "error", err)
	}
}
