package cfddns_test

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// fakeCloudflare serves the subset of the Cloudflare v4 API used by cfddns.
// Records are kept as raw JSON so tests can compare bodies byte for byte.
type fakeCloudflare struct {
	srv   *httptest.Server
	token string

	mu          sync.Mutex
	tokenStatus string
	zones       map[string]bool
	records     map[string]map[string]string
	lists       map[string]string
	pages       map[string][]string
	failures map[string]int
	requests []recordedRequest
}

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

func newFakeCloudflare(t *testing.T, token string) *fakeCloudflare {
	t.Helper()
	f := &fakeCloudflare{
		token:       token,
		tokenStatus: "active",
		zones:       map[string]bool{},
		records:     map[string]map[string]string{},
		lists:       map[string]string{},
		pages:       map[string][]string{},
		failures:    map[string]int{},
	}

	r := chi.NewRouter()
	r.Use(f.logRequests, f.inject, f.authenticate)
	r.Get("/user/tokens/verify", f.verifyToken)
	r.Get("/zones/{zone}", f.getZone)
	r.Get("/zones/{zone}/dns_records", f.listRecords)
	r.Get("/zones/{zone}/dns_records/{record}", f.getRecord)
	r.Put("/zones/{zone}/dns_records/{record}", f.putRecord)

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCloudflare) URL() string { return f.srv.URL }

func (f *fakeCloudflare) addZone(zone string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.zones[zone] = true
	if f.records[zone] == nil {
		f.records[zone] = map[string]string{}
	}
}

// addRecord stores raw as the result object of record id.
func (f *fakeCloudflare) addRecord(zone, id, raw string) {
	f.addZone(zone)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[zone][id] = raw
}

func (f *fakeCloudflare) storedRecord(zone, id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[zone][id]
}

// setList replaces the whole reply body of the record listing for zone.
func (f *fakeCloudflare) setList(zone, body string) {
	f.addZone(zone)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[zone] = body
}

// setPages splits the record listing for zone into pages, each a JSON array of records.
func (f *fakeCloudflare) setPages(zone string, pages ...string) {
	f.addZone(zone)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[zone] = pages
}

func (f *fakeCloudflare) setTokenStatus(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus = status
}

// failWith makes every request matching method and path answer with status.
func (f *fakeCloudflare) failWith(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = status
}

func (f *fakeCloudflare) calls(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, req := range f.requests {
		if req.Method == method && req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

func (f *fakeCloudflare) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeCloudflare) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *fakeCloudflare) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status, ok := f.failures[r.Method+" "+r.URL.EscapedPath()]
		f.mu.Unlock()
		if ok {
			writeError(w, status, 9999, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeCloudflare) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			if r.URL.Path == "/user/tokens/verify" {
				writeError(w, http.StatusUnauthorized, 1000, "Invalid API Token")
				return
			}
			writeError(w, http.StatusForbidden, 10000, "Authentication error")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeCloudflare) verifyToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status := f.tokenStatus
	f.mu.Unlock()
	writeResult(w, http.StatusOK, fmt.Sprintf(`{"id":"ed17574386854bf78a67040be0a770b0","status":%q}`, status))
}

func (f *fakeCloudflare) getZone(w http.ResponseWriter, r *http.Request) {
	zone := chi.URLParam(r, "zone")
	f.mu.Lock()
	ok := f.zones[zone]
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, 1001, "Invalid zone identifier")
		return
	}
	writeResult(w, http.StatusOK, fmt.Sprintf(`{"id":%q,"name":"example.com","status":"active"}`, zone))
}

func (f *fakeCloudflare) listRecords(w http.ResponseWriter, r *http.Request) {
	zone := chi.URLParam(r, "zone")
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.zones[zone] {
		writeError(w, http.StatusNotFound, 1001, "Invalid zone identifier")
		return
	}
	if body, ok := f.lists[zone]; ok {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
		return
	}
	if pages, ok := f.pages[zone]; ok {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		result := "[]"
		if page <= len(pages) {
			result = pages[page-1]
		}
		writeList(w, result, page, len(pages))
		return
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	i := 0
	for _, raw := range f.records[zone] {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(raw)
		i++
	}
	buf.WriteByte(']')
	writeList(w, buf.String(), 1, 1)
}

func (f *fakeCloudflare) getRecord(w http.ResponseWriter, r *http.Request) {
	zone, id := chi.URLParam(r, "zone"), chi.URLParam(r, "record")
	f.mu.Lock()
	raw, ok := f.records[zone][id]
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, 81044, "Record does not exist.")
		return
	}
	writeResult(w, http.StatusOK, raw)
}

func (f *fakeCloudflare) putRecord(w http.ResponseWriter, r *http.Request) {
	zone, id := chi.URLParam(r, "zone"), chi.URLParam(r, "record")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, 9207, "Request body is invalid.")
		return
	}
	f.mu.Lock()
	_, ok := f.records[zone][id]
	if ok {
		f.records[zone][id] = string(body)
	}
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, 81044, "Record does not exist.")
		return
	}
	writeResult(w, http.StatusOK, string(body))
}

func writeResult(w http.ResponseWriter, status int, result string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"success":true,"errors":[],"messages":[],"result":%s}`, result)
}

func writeList(w http.ResponseWriter, result string, page, totalPages int) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"success":true,"errors":[],"messages":[],"result":%s,"result_info":{"page":%d,"per_page":100,"total_pages":%d}}`, result, page, totalPages)
}

func writeError(w http.ResponseWriter, status int, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"success":false,"errors":[{"code":%d,"message":%q}],"messages":[],"result":null}`, code, msg)
}
