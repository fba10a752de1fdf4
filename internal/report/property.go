// Package report answers paginated listing requests for comments and shapes
// each comment as a set of namespaced DAV properties.
package report

import (
	"net/http"
	"strconv"

	"github.com/evcraddock/filecomments/internal/comment"
)

// Namespace is the XML namespace of comment properties.
const Namespace = "http://owncloud.org/ns"

// PropName is a namespace-qualified property name.
type PropName struct {
	Space string
	Local string
}

// String renders the name in Clark notation: {namespace}local.
func (n PropName) String() string {
	return "{" + n.Space + "}" + n.Local
}

// Name returns a property name in the comment namespace.
func Name(local string) PropName {
	return PropName{Space: Namespace, Local: local}
}

// Value is either Found or NotApplicable.
type Value interface {
	Status() int
	value()
}

// Found is a property that applies to the comment, with its value.
type Found string

// Status returns 200.
func (Found) Status() int { return http.StatusOK }
func (Found) value()      {}

// NotApplicable is a property the comment does not have.
type NotApplicable struct{}

// Status returns 404.
func (NotApplicable) Status() int { return http.StatusNotFound }
func (NotApplicable) value()      {}

// Prop is a single named property of a result.
type Prop struct {
	Name  PropName
	Value Value
}

// Result is the property view of one comment.
type Result struct {
	CommentID int64
	Props     []Prop
}

// Lookup returns the value of the named property.
func (r Result) Lookup(name PropName) (Value, bool) {
	for _, p := range r.Props {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// ByStatus groups property values by status code and Clark name.
// NotApplicable properties map to the empty string.
func (r Result) ByStatus() map[int]map[string]string {
	out := make(map[int]map[string]string)
	for _, p := range r.Props {
		status := p.Value.Status()
		if out[status] == nil {
			out[status] = make(map[string]string)
		}
		if f, ok := p.Value.(Found); ok {
			out[status][p.Name.String()] = string(f)
		} else {
			out[status][p.Name.String()] = ""
		}
	}
	return out
}

type getter func(c *comment.Comment) string

// commentProps lists the properties every comment has, in response order.
var commentProps = []struct {
	local string
	get   getter
}{
	{"id", func(c *comment.Comment) string { return strconv.FormatInt(c.ID, 10) }},
	{"verb", func(c *comment.Comment) string { return c.Verb }},
	{"actorType", func(c *comment.Comment) string { return c.ActorType }},
	{"actorId", func(c *comment.Comment) string { return c.ActorID }},
	{"actorDisplayName", func(c *comment.Comment) string { return c.ActorDisplayName }},
	{"creationDateTime", func(c *comment.Comment) string { return c.CreationDateTime.UTC().Format(http.TimeFormat) }},
	{"objectType", func(c *comment.Comment) string { return c.ObjectType }},
	{"objectId", func(c *comment.Comment) string { return c.ObjectID }},
	{"message", func(c *comment.Comment) string { return c.Message }},
}

// PropNames returns every property a comment exposes.
func PropNames() []PropName {
	names := make([]PropName, len(commentProps))
	for i, p := range commentProps {
		names[i] = Name(p.local)
	}
	return names
}

// Properties builds the property view of c. With no requested names every
// known property is returned; unknown requested names are NotApplicable.
func Properties(c *comment.Comment, requested []PropName) Result {
	res := Result{CommentID: c.ID}
	if len(requested) == 0 {
		requested = PropNames()
	}

	for _, name := range requested {
		res.Props = append(res.Props, Prop{Name: name, Value: lookupValue(c, name)})
	}
	return res
}

func lookupValue(c *comment.Comment, name PropName) Value {
	if name.Space != Namespace {
		return NotApplicable{}
	}
	for _, p := range commentProps {
		if p.local == name.Local {
			return Found(p.get(c))
		}
	}
	return NotApplicable{}
}
