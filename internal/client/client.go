// Package client provides an HTTP client for the DAV comments endpoint.
package client

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/filecomments/internal/comment"
	"github.com/evcraddock/filecomments/internal/dav"
	"github.com/evcraddock/filecomments/internal/report"
)

// ErrNotFound is returned when the server reports the comment or target missing.
var ErrNotFound = errors.New("not found")

// Error is a non-success response from the server.
type Error struct {
	StatusCode int
	Exception  string
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server error: %s", http.StatusText(e.StatusCode))
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to a comments server. baseURL is the DAV root, e.g.
// http://localhost:8080/remote.php/dav.
type Client struct {
	baseURL    string
	user       string
	apiKey     string
	httpClient *http.Client
}

// New creates a new client authenticating as user with apiKey.
func New(baseURL, user, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		user:       user,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) collectionURL(fileID string) string {
	return c.baseURL + "/comments/files/" + fileID + "/"
}

func (c *Client) commentURL(fileID string, id int64) string {
	return c.collectionURL(fileID) + strconv.FormatInt(id, 10)
}

// CreateComment posts a comment on a file and returns its id.
func (c *Client) CreateComment(fileID, message string) (int64, error) {
	body, err := json.Marshal(map[string]string{
		"actorType":        "users",
		"actorId":          c.user,
		"actorDisplayName": c.user,
		"verb":             "comment",
		"message":          message,
		"objectType":       "files",
	})
	if err != nil {
		return 0, fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.do(http.MethodPost, c.collectionURL(fileID), "application/json", body)
	if err != nil {
		return 0, err
	}
	if err := expect(resp, http.StatusCreated); err != nil {
		return 0, err
	}

	loc := resp.header.Get("Content-Location")
	id, err := strconv.ParseInt(loc[strings.LastIndex(loc, "/")+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing Content-Location %q: %w", loc, err)
	}
	return id, nil
}

// EditComment replaces a comment's message.
func (c *Client) EditComment(fileID string, id int64, message string) error {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(message)); err != nil {
		return fmt.Errorf("escaping message: %w", err)
	}
	body := `<?xml version="1.0" encoding="utf-8" ?>
<d:propertyupdate xmlns:d="DAV:" xmlns:oc="http://owncloud.org/ns">
  <d:set>
    <d:prop>
      <oc:message>` + escaped.String() + `</oc:message>
    </d:prop>
  </d:set>
</d:propertyupdate>`

	resp, err := c.do(dav.MethodPropPatch, c.commentURL(fileID, id), "application/xml; charset=utf-8", []byte(body))
	if err != nil {
		return err
	}
	if err := expect(resp, http.StatusMultiStatus); err != nil {
		return err
	}

	ms, err := dav.ParseMultistatus(bytes.NewReader(resp.body))
	if err != nil {
		return err
	}
	for _, r := range ms.Responses {
		for code, props := range r.Properties() {
			if _, ok := props[report.Name("message").String()]; ok && code != http.StatusOK {
				return fmt.Errorf("message not updated: %s", http.StatusText(code))
			}
		}
	}
	return nil
}

// DeleteComment removes a comment.
func (c *Client) DeleteComment(fileID string, id int64) error {
	resp, err := c.do(http.MethodDelete, c.commentURL(fileID, id), "", nil)
	if err != nil {
		return err
	}
	return expect(resp, http.StatusNoContent)
}

// ListComments returns a page of a file's comments in creation order.
// A negative limit returns every comment from offset on.
func (c *Client) ListComments(fileID string, limit, offset int) ([]*comment.Comment, error) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8" ?>
<oc:filter-comments xmlns:d="DAV:" xmlns:oc="http://owncloud.org/ns">
`)
	if limit >= 0 {
		fmt.Fprintf(&b, "  <oc:limit>%d</oc:limit>\n", limit)
	}
	fmt.Fprintf(&b, "  <oc:offset>%d</oc:offset>\n</oc:filter-comments>", offset)

	resp, err := c.do(dav.MethodReport, c.collectionURL(fileID), "application/xml; charset=utf-8", []byte(b.String()))
	if err != nil {
		return nil, err
	}
	if err := expect(resp, http.StatusMultiStatus); err != nil {
		return nil, err
	}

	ms, err := dav.ParseMultistatus(bytes.NewReader(resp.body))
	if err != nil {
		return nil, err
	}

	comments := make([]*comment.Comment, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		cm, err := toComment(r.Properties()[http.StatusOK])
		if err != nil {
			return nil, fmt.Errorf("response %s: %w", r.Href, err)
		}
		comments = append(comments, cm)
	}
	return comments, nil
}

func toComment(props map[string]string) (*comment.Comment, error) {
	get := func(local string) string {
		return props[report.Name(local).String()]
	}

	id, err := strconv.ParseInt(get("id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing id %q: %w", get("id"), err)
	}

	c := &comment.Comment{
		ID:               id,
		ObjectType:       get("objectType"),
		ObjectID:         get("objectId"),
		ActorType:        get("actorType"),
		ActorID:          get("actorId"),
		ActorDisplayName: get("actorDisplayName"),
		Verb:             get("verb"),
		Message:          get("message"),
	}
	if v := get("creationDateTime"); v != "" {
		t, err := http.ParseTime(v)
		if err != nil {
			return nil, fmt.Errorf("parsing creationDateTime %q: %w", v, err)
		}
		c.CreationDateTime = t.UTC()
	}
	return c, nil
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do executes a request with Basic auth and reads the whole response.
func (c *Client) do(method, url, contentType string, body []byte) (*response, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rdr)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.SetBasicAuth(c.user, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			fmt.Printf("warning: closing response body: %v\n", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: respBody}, nil
}

// expect returns an *Error unless resp has the wanted status.
func expect(resp *response, want int) error {
	if resp.status == want {
		return nil
	}

	e := &Error{StatusCode: resp.status}
	var doc struct {
		Exception string `xml:"http://sabredav.org/ns exception"`
		Message   string `xml:"http://sabredav.org/ns message"`
	}
	if xml.Unmarshal(resp.body, &doc) == nil {
		e.Exception = doc.Exception
		e.Message = doc.Message
	} else if msg := strings.TrimSpace(string(resp.body)); msg != "" && len(msg) < 200 {
		e.Message = msg
	}
	return e
}

// CheckCredentials reports whether the server accepts the client's
// credentials. It returns an *Error with status 401 when it does not.
func (c *Client) CheckCredentials() error {
	resp, err := c.do(dav.MethodReport, c.collectionURL("0"), "application/xml; charset=utf-8", nil)
	if err != nil {
		return err
	}
	switch resp.status {
	case http.StatusUnauthorized, http.StatusTooManyRequests:
		return expect(resp, http.StatusOK)
	}
	if resp.status >= 500 {
		return expect(resp, http.StatusOK)
	}
	return nil
}
