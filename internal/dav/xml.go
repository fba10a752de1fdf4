package dav

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/evcraddock/filecomments/internal/report"
)

const (
	nsDAV   = "DAV:"
	nsSabre = "http://sabredav.org/ns"

	xmlContentType = "application/xml; charset=utf-8"
)

// propertyUpdate is a PROPPATCH body.
type propertyUpdate struct {
	XMLName xml.Name        `xml:"DAV: propertyupdate"`
	Set     []propContainer `xml:"DAV: set"`
	Remove  []propContainer `xml:"DAV: remove"`
}

type propContainer struct {
	Prop propList `xml:"DAV: prop"`
}

type propList struct {
	Props []rawProp `xml:",any"`
}

// rawProp is one property element; Text holds its unescaped character data.
type rawProp struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

func (p rawProp) name() report.PropName {
	return report.PropName{Space: p.XMLName.Space, Local: p.XMLName.Local}
}

// filterComments is a REPORT body.
type filterComments struct {
	XMLName  xml.Name  `xml:""`
	Limit    *string   `xml:"http://owncloud.org/ns limit"`
	Offset   *string   `xml:"http://owncloud.org/ns offset"`
	Datetime *string   `xml:"http://owncloud.org/ns datetime"`
	Prop     *propList `xml:"DAV: prop"`
}

// Multistatus is a decoded 207 Multi-Status document.
type Multistatus struct {
	XMLName   xml.Name   `xml:"DAV: multistatus"`
	Responses []Response `xml:"DAV: response"`
}

// Response is one resource in a multistatus document.
type Response struct {
	Href      string     `xml:"DAV: href"`
	Propstats []Propstat `xml:"DAV: propstat"`
}

// Propstat groups properties that share a status.
type Propstat struct {
	Prop   propList `xml:"DAV: prop"`
	Status string   `xml:"DAV: status"`
}

// StatusCode parses the numeric code from a status line like "HTTP/1.1 200 OK".
func (p Propstat) StatusCode() int {
	fields := strings.Fields(p.Status)
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

// Properties indexes the response's properties by status code and Clark
// name, e.g. props[200]["{http://owncloud.org/ns}message"].
func (r Response) Properties() map[int]map[string]string {
	out := make(map[int]map[string]string)
	for _, ps := range r.Propstats {
		code := ps.StatusCode()
		if out[code] == nil {
			out[code] = make(map[string]string)
		}
		for _, p := range ps.Prop.Props {
			out[code][p.name().String()] = p.Text
		}
	}
	return out
}

// ParseMultistatus decodes a multistatus document.
func ParseMultistatus(r io.Reader) (*Multistatus, error) {
	var ms Multistatus
	if err := xml.NewDecoder(r).Decode(&ms); err != nil {
		return nil, fmt.Errorf("decoding multistatus: %w", err)
	}
	return &ms, nil
}

// propResponse is one resource to encode in a multistatus document.
type propResponse struct {
	href  string
	props []propStatus
}

// propStatus is an encodable property: a name, a status and, for found
// properties, a value.
type propStatus struct {
	name   report.PropName
	status int
	value  string
}

// fromResult converts a report result to encodable properties.
func fromResult(res report.Result) []propStatus {
	props := make([]propStatus, 0, len(res.Props))
	for _, p := range res.Props {
		ps := propStatus{name: p.Name, status: p.Value.Status()}
		if f, ok := p.Value.(report.Found); ok {
			ps.value = string(f)
		}
		props = append(props, ps)
	}
	return props
}

// xmlWriter emits DAV XML with d:, oc: and s: prefixes.
type xmlWriter struct {
	enc     *xml.Encoder
	err     error
	extraNS map[string]string
}

func newXMLWriter(w io.Writer) *xmlWriter {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return &xmlWriter{err: err}
	}
	return &xmlWriter{enc: xml.NewEncoder(w), extraNS: make(map[string]string)}
}

func (x *xmlWriter) token(t xml.Token) {
	if x.err != nil {
		return
	}
	x.err = x.enc.EncodeToken(t)
}

func (x *xmlWriter) start(name string, attrs ...xml.Attr) {
	x.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (x *xmlWriter) end(name string) {
	x.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (x *xmlWriter) text(name, value string) {
	x.start(name)
	x.token(xml.CharData(value))
	x.end(name)
}

func (x *xmlWriter) flush() error {
	if x.err != nil {
		return x.err
	}
	return x.enc.Flush()
}

// qualified returns the prefixed element name for a property and, for
// namespaces without a fixed prefix, the declaring attribute.
func (x *xmlWriter) qualified(n report.PropName) (string, []xml.Attr) {
	switch n.Space {
	case nsDAV:
		return "d:" + n.Local, nil
	case report.Namespace:
		return "oc:" + n.Local, nil
	case "":
		return n.Local, nil
	}
	prefix, ok := x.extraNS[n.Space]
	if !ok {
		prefix = "x" + strconv.Itoa(len(x.extraNS)+1)
		x.extraNS[n.Space] = prefix
	}
	return prefix + ":" + n.Local, []xml.Attr{{Name: xml.Name{Local: "xmlns:" + prefix}, Value: n.Space}}
}

func rootAttrs() []xml.Attr {
	return []xml.Attr{
		{Name: xml.Name{Local: "xmlns:d"}, Value: nsDAV},
		{Name: xml.Name{Local: "xmlns:oc"}, Value: report.Namespace},
	}
}

func statusLine(code int) string {
	return fmt.Sprintf("HTTP/1.1 %d %s", code, http.StatusText(code))
}

// encodeMultistatus writes responses as a multistatus document with one
// propstat per distinct status, in ascending status order.
func encodeMultistatus(w io.Writer, responses []propResponse) error {
	x := newXMLWriter(w)
	x.start("d:multistatus", rootAttrs()...)

	for _, resp := range responses {
		x.start("d:response")
		x.text("d:href", resp.href)

		byStatus := make(map[int][]propStatus)
		for _, p := range resp.props {
			byStatus[p.status] = append(byStatus[p.status], p)
		}
		statuses := make([]int, 0, len(byStatus))
		for s := range byStatus {
			statuses = append(statuses, s)
		}
		sort.Ints(statuses)

		for _, s := range statuses {
			x.start("d:propstat")
			x.start("d:prop")
			for _, p := range byStatus[s] {
				name, attrs := x.qualified(p.name)
				x.start(name, attrs...)
				if p.value != "" {
					x.token(xml.CharData(p.value))
				}
				x.end(name)
			}
			x.end("d:prop")
			x.text("d:status", statusLine(s))
			x.end("d:propstat")
		}
		x.end("d:response")
	}

	x.end("d:multistatus")
	return x.flush()
}

// encodeError writes a Sabre-style DAV error document.
func encodeError(w io.Writer, exception, message string) error {
	x := newXMLWriter(w)
	x.start("d:error",
		xml.Attr{Name: xml.Name{Local: "xmlns:d"}, Value: nsDAV},
		xml.Attr{Name: xml.Name{Local: "xmlns:s"}, Value: nsSabre},
	)
	x.text("s:exception", exception)
	x.text("s:message", message)
	x.end("d:error")
	return x.flush()
}
