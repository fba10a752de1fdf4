package dav

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/evcraddock/filecomments/internal/report"
)

// parseReport decodes an oc:filter-comments body into a query. An empty body
// selects every comment with all properties.
func parseReport(r *http.Request, req request) (report.Query, error) {
	q := report.Query{ObjectType: req.objectType, ObjectID: req.objectID}

	var fc filterComments
	if err := xml.NewDecoder(r.Body).Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return q, nil
		}
		return q, fmt.Errorf("decoding report: %w: %w", ErrMalformedPayload, err)
	}

	if fc.XMLName.Space != report.Namespace || fc.XMLName.Local != "filter-comments" {
		return q, fmt.Errorf("unsupported report {%s}%s: %w", fc.XMLName.Space, fc.XMLName.Local, ErrMalformedPayload)
	}

	if fc.Limit != nil {
		n, err := parseInt("limit", *fc.Limit)
		if err != nil {
			return q, err
		}
		q.Limit = &n
	}
	if fc.Offset != nil {
		n, err := parseInt("offset", *fc.Offset)
		if err != nil {
			return q, err
		}
		q.Offset = n
	}
	if fc.Datetime != nil && strings.TrimSpace(*fc.Datetime) != "" {
		t, err := parseTime(strings.TrimSpace(*fc.Datetime))
		if err != nil {
			return q, err
		}
		q.Since = &t
	}
	if fc.Prop != nil {
		for _, p := range fc.Prop.Props {
			q.Props = append(q.Props, p.name())
		}
	}

	return q, nil
}

func parseInt(field, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, s, ErrMalformedPayload)
	}
	return n, nil
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request, req request) {
	q, err := parseReport(r, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if h.targets != nil {
		ok, err := h.targets.TargetExists(req.objectType, req.objectID)
		if err != nil {
			writeError(w, r, fmt.Errorf("checking target: %w", err))
			return
		}
		if !ok {
			writeError(w, r, fmt.Errorf("%s/%s: %w", req.objectType, req.objectID, errNoSuchCollection))
			return
		}
	}

	results, err := h.reporter.Report(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	responses := make([]propResponse, 0, len(results))
	for _, res := range results {
		responses = append(responses, propResponse{
			href:  h.commentPath(req.objectType, req.objectID, res.CommentID),
			props: fromResult(res),
		})
	}
	writeMultistatus(w, r, responses)
}
