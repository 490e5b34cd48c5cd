package cfddns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCloudflareURL = "https://api.cloudflare.com/client/v4"
	DefaultTimeout       = 10 * time.Second

	// emptyRecordID is sent in place of an empty record ID so the request still has a path segment.
	emptyRecordID = "null"
	commentPrefix = "Updated by cfddns on: "
	commentLayout = "2006-01-02 15:04:05"

	maxResponseSize = 1 << 20
	listPageSize    = 100
)

var userAgent = "cfddns/" + Version

var errNoResult = errors.New("response has no result object")

// CloudflareOption configures a CloudflareClient.
type CloudflareOption func(*cloudflareConfig)

type cloudflareConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     logrus.FieldLogger
	metrics    *Metrics
	now        func() time.Time
}

// CloudflareURL overrides the API base URL. Mostly useful for tests.
func CloudflareURL(baseURL string) CloudflareOption {
	return func(c *cloudflareConfig) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func CloudflareHTTPClient(httpClient *http.Client) CloudflareOption {
	return func(c *cloudflareConfig) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// CloudflareTimeout bounds each API call. Expiry is treated like any other transport failure.
func CloudflareTimeout(d time.Duration) CloudflareOption {
	return func(c *cloudflareConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func CloudflareLogger(logger logrus.FieldLogger) CloudflareOption {
	return func(c *cloudflareConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func CloudflareMetrics(m *Metrics) CloudflareOption {
	return func(c *cloudflareConfig) {
		c.metrics = m
	}
}

// CloudflareClock sets the clock used for the comment attached to updated records.
func CloudflareClock(now func() time.Time) CloudflareOption {
	return func(c *cloudflareConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// CloudflareClient implements cfddns.Provider for the Cloudflare v4 API.
//
// Reads go through cloudflare-go.
// UpdateRecord talks to the API directly because it has to write back fields cloudflare-go does not model.
//
// It should be constructed using NewCloudflareClient.
type CloudflareClient struct {
	token string
	cloudflareConfig

	api    *cloudflare.API
	apiErr error
}

func NewCloudflareClient(token string, options ...CloudflareOption) *CloudflareClient {
	cf := &CloudflareClient{
		token: token,
		cloudflareConfig: cloudflareConfig{
			baseURL:    DefaultCloudflareURL,
			httpClient: http.DefaultClient,
			timeout:    DefaultTimeout,
			logger:     discard,
			now:        time.Now,
		},
	}
	for _, opt := range options {
		opt(&cf.cloudflareConfig)
	}
	return cf
}

// client returns the cloudflare-go client, creating it on first use.
func (cf *CloudflareClient) client() (*cloudflare.API, error) {
	if cf.api == nil && cf.apiErr == nil {
		cf.api, cf.apiErr = cloudflare.NewWithAPIToken(cf.token,
			cloudflare.BaseURL(cf.baseURL),
			cloudflare.HTTPClient(cf.httpClient),
			cloudflare.UserAgent(userAgent),
			cloudflare.Headers(http.Header{"Accept": []string{"application/json"}}),
			cloudflare.UsingRetryPolicy(0, 1, 1),
			cloudflare.UsingLogger(cf.logger),
		)
	}
	return cf.api, cf.apiErr
}

// call runs fn against the cloudflare-go client under the per-call timeout and records it as action.
func (cf *CloudflareClient) call(ctx context.Context, action string, fn func(context.Context, *cloudflare.API) error) error {
	api, err := cf.client()
	if err != nil {
		return fmt.Errorf("error creating cloudflare api client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cf.timeout)
	defer cancel()

	start := time.Now()
	err = fn(ctx, api)
	cf.metrics.observe(action, err == nil, time.Since(start))
	return err
}

// ValidateToken reports whether the token is active.
func (cf *CloudflareClient) ValidateToken(ctx context.Context) bool {
	log := cf.logger.WithField("action", actVerifyToken)
	if cf.token == "" {
		log.Debug("empty api token")
		return false
	}

	var status string
	err := cf.call(ctx, actVerifyToken, func(ctx context.Context, api *cloudflare.API) error {
		result, err := api.VerifyAPIToken(ctx)
		status = result.Status
		return err
	})
	if err != nil {
		log.WithError(err).Debug("unable to verify api token")
		return false
	}
	log.Debugf("token status is %q", status)
	return status == "active"
}

// ValidateZone reports whether the zone can be read with the token.
func (cf *CloudflareClient) ValidateZone(ctx context.Context, zoneID string) bool {
	log := cf.logger.WithFields(logrus.Fields{"action": actGetZone, "zone_id": zoneID})
	// GET /zones/ lists every zone the token can see
	if zoneID == "" {
		log.Debug("empty zone id")
		return false
	}

	err := cf.call(ctx, actGetZone, func(ctx context.Context, api *cloudflare.API) error {
		_, err := api.ZoneDetails(ctx, url.PathEscape(zoneID))
		return err
	})
	if err != nil {
		log.WithError(err).Debug("zone lookup failed")
		return false
	}
	return true
}

// ValidateRecord reports whether the record can be read with the token.
//
// An empty recordID is sent as the literal "null",
// so the call asks the provider about a record instead of listing the zone.
func (cf *CloudflareClient) ValidateRecord(ctx context.Context, zoneID, recordID string) bool {
	if recordID == "" {
		recordID = emptyRecordID
	}
	log := cf.logger.WithFields(logrus.Fields{
		"action":    actGetRecord,
		"zone_id":   zoneID,
		"record_id": recordID,
	})

	err := cf.call(ctx, actGetRecord, func(ctx context.Context, api *cloudflare.API) error {
		_, err := api.GetDNSRecord(ctx, cloudflare.ZoneIdentifier(url.PathEscape(zoneID)), url.PathEscape(recordID))
		return err
	})
	if err != nil {
		log.WithError(err).Debug("record lookup failed")
		return false
	}
	return true
}

// ListRecords returns every record of a zone, across all pages.
// The returned slice is never nil; failures produce an empty slice.
func (cf *CloudflareClient) ListRecords(ctx context.Context, zoneID string) []DNSRecord {
	log := cf.logger.WithFields(logrus.Fields{"action": actListRecords, "zone_id": zoneID})
	records := []DNSRecord{}

	// Pages are requested explicitly: cloudflare-go's own paging never stops on a reply without result_info.
	rc := cloudflare.ZoneIdentifier(url.PathEscape(zoneID))
	params := cloudflare.ListDNSRecordsParams{
		ResultInfo: cloudflare.ResultInfo{Page: 1, PerPage: listPageSize},
	}
	for {
		var page []cloudflare.DNSRecord
		var info *cloudflare.ResultInfo
		err := cf.call(ctx, actListRecords, func(ctx context.Context, api *cloudflare.API) (err error) {
			page, info, err = api.ListDNSRecords(ctx, rc, params)
			return err
		})
		if err != nil {
			log.WithError(err).WithField("page", params.Page).Debug("unable to list records")
			return []DNSRecord{}
		}
		for _, r := range page {
			records = append(records, recordFromAPI(r))
		}
		if len(page) == 0 || info == nil || params.Page >= info.TotalPages {
			break
		}
		params.Page++
	}
	log.Debugf("found %d records", len(records))
	return records
}

// UpdateRecord points the record at addr.
//
// The API only accepts complete records on PUT,
// so the current record is fetched first and written back with only content and comment replaced.
// Every other field is sent exactly as it was received.
// Nothing guards against a concurrent change between the read and the write.
func (cf *CloudflareClient) UpdateRecord(ctx context.Context, zoneID, recordID string, addr netip.Addr) UpdateOutcome {
	log := cf.logger.WithFields(logrus.Fields{
		"action":    actUpdateRecord,
		"zone_id":   zoneID,
		"record_id": recordID,
	})
	path := recordPath(zoneID, recordID)

	status, body, err := cf.do(ctx, actGetRecord, http.MethodGet, path, nil)
	if err != nil {
		log.WithError(err).Debug("unable to fetch record")
		return UpdateOutcome{}
	}
	if !isSuccess(status) {
		log.Debugf("fetching record returned %d", status)
		return newUpdateOutcome(status, body)
	}

	fields, err := decodeRecordObject(body)
	if err != nil {
		log.WithError(err).Debug("error decoding record")
		return UpdateOutcome{}
	}
	if want, got := recordType(addr), rawString(fields["type"]); want != "" && got != "" && want != got {
		log.Warnf("record type is %s but the new address %s belongs in a %s record", got, addr, want)
	}

	payload, err := encodeRecordUpdate(fields, addr, cf.now())
	if err != nil {
		log.WithError(err).Debug("error encoding record")
		return UpdateOutcome{}
	}

	status, body, err = cf.do(ctx, actUpdateRecord, http.MethodPut, path, payload)
	if err != nil {
		log.WithError(err).Debug("unable to send record update")
		return UpdateOutcome{}
	}
	outcome := newUpdateOutcome(status, body)
	log.Debugf("record update returned %s", outcome)
	return outcome
}

// do sends a request and returns the status code and body of the reply.
// err is only set when no reply was received.
func (cf *CloudflareClient) do(ctx context.Context, action, method, path string, payload []byte) (status int, body []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, cf.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, cf.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cf.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := cf.httpClient.Do(req)
	if err != nil {
		cf.metrics.observe(action, false, time.Since(start))
		return 0, nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	cf.metrics.observe(action, err == nil && isSuccess(resp.StatusCode), time.Since(start))
	if err != nil {
		return 0, nil, fmt.Errorf("error reading response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func zonePath(zoneID string) string {
	return "/zones/" + url.PathEscape(zoneID)
}

func recordPath(zoneID, recordID string) string {
	return zonePath(zoneID) + "/dns_records/" + url.PathEscape(recordID)
}

// decodeRecordObject returns the fields of the record in a single record reply, undecoded.
func decodeRecordObject(body []byte) (map[string]json.RawMessage, error) {
	var resp recordResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, errNoResult
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(resp.Result, &fields); err != nil {
		return nil, fmt.Errorf("%w: %s", errNoResult, err)
	}
	return fields, nil
}

func encodeRecordUpdate(fields map[string]json.RawMessage, addr netip.Addr, now time.Time) ([]byte, error) {
	content, err := json.Marshal(addr.String())
	if err != nil {
		return nil, err
	}
	comment, err := json.Marshal(commentPrefix + now.Format(commentLayout))
	if err != nil {
		return nil, err
	}
	fields["content"] = content
	fields["comment"] = comment
	return json.Marshal(fields)
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
