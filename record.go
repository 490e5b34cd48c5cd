package cfddns

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudflare/cloudflare-go"
)

const (
	RecordTypeA    = "A"
	RecordTypeAAAA = "AAAA"
)

// DNSRecord is a single record in a zone as returned by the Cloudflare API.
// Types other than A and AAAA are passed through verbatim.
type DNSRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Proxied bool   `json:"proxied"`
	Comment string `json:"comment"`
}

func recordFromAPI(r cloudflare.DNSRecord) DNSRecord {
	return DNSRecord{
		ID:      r.ID,
		Name:    r.Name,
		Type:    r.Type,
		Content: r.Content,
		Proxied: r.Proxied != nil && *r.Proxied,
		Comment: r.Comment,
	}
}

// The API wraps every payload in a "result" field whose shape depends on the endpoint.
// Listing goes through cloudflare-go; the envelopes below serve the update, which needs the raw record.

// recordResponse is returned by GET and PUT /zones/{zone}/dns_records/{record}.
// The result is kept raw so that a record can be written back without losing fields.
type recordResponse struct {
	Result json.RawMessage `json:"result"`
}

// statusResponse carries the success flag and error messages present on every reply.
type statusResponse struct {
	Success bool         `json:"success"`
	Errors  []apiMessage `json:"errors"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (m apiMessage) String() string {
	if m.Code == 0 {
		return m.Message
	}
	return fmt.Sprintf("%s (%d)", m.Message, m.Code)
}

// errorSummary extracts the error messages from a reply body, or "" if there are none.
func errorSummary(body []byte) string {
	var sr statusResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(sr.Errors))
	for _, m := range sr.Errors {
		msgs = append(msgs, m.String())
	}
	return strings.Join(msgs, "; ")
}

// UpdateOutcome is the raw result of UpdateRecord.
//
// The zero value means the request could not be completed:
// a network error, a timeout, or a reply that could not be decoded.
type UpdateOutcome struct {
	Delivered  bool
	StatusCode int
	Status     string // http status text, e.g. "Forbidden"
	Reason     string // error messages reported by the provider, if any
}

// OK reports whether the provider accepted the update.
func (o UpdateOutcome) OK() bool {
	return o.Delivered && isSuccess(o.StatusCode)
}

func (o UpdateOutcome) String() string {
	if !o.Delivered {
		return "request not delivered"
	}
	s := fmt.Sprintf("%d %s", o.StatusCode, o.Status)
	if o.Reason != "" {
		s += ": " + o.Reason
	}
	return s
}

func newUpdateOutcome(status int, body []byte) UpdateOutcome {
	o := UpdateOutcome{
		Delivered:  true,
		StatusCode: status,
		Status:     http.StatusText(status),
	}
	if !o.OK() {
		o.Reason = errorSummary(body)
	}
	return o
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}
