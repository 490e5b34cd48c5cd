package cfddns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultIPServiceURL answers with the caller's address over IPv6 when available and IPv4 otherwise.
const DefaultIPServiceURL = "https://api64.ipify.org"

// WebResolver uses an external web service to look up the "public" IP address.
//
// The service must speak http and return status "200 OK",
// with a valid IPv4 or IPv6 address as the entire response body.
// All other responses are considered an error.
// There are no retries and no caching; each call to Resolve makes exactly one request.
type WebResolver struct {
	serviceURL *url.URL
	httpClient *http.Client
	timeout    time.Duration
	logger     logrus.FieldLogger
	metrics    *Metrics
}

func NewWebResolver(serviceURL string) (*WebResolver, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q in %s", u.Scheme, serviceURL)
	}
	return &WebResolver{
		serviceURL: u,
		timeout:    DefaultTimeout,
		logger:     discard,
	}, nil
}

func (wr *WebResolver) SetHTTPClient(c *http.Client) { wr.httpClient = c }

func (wr *WebResolver) SetLogger(l logrus.FieldLogger) { wr.logger = l }

func (wr *WebResolver) SetMetrics(m *Metrics) { wr.metrics = m }

func (wr *WebResolver) SetTimeout(d time.Duration) {
	if d > 0 {
		wr.timeout = d
	}
}

// Resolve implements cfddns.Resolver.
func (wr *WebResolver) Resolve(ctx context.Context) (PublicAddress, error) {
	start := time.Now()
	addr, err := wr.lookup(ctx)
	wr.metrics.observe(actResolveIP, err == nil, time.Since(start))
	if err != nil {
		wr.logger.WithField("action", actResolveIP).WithError(err).Debugf("lookup from %s failed", wr.serviceURL)
		return PublicAddress{}, err
	}
	return newPublicAddress(addr), nil
}

func (wr *WebResolver) lookup(ctx context.Context) (netip.Addr, error) {
	if wr.serviceURL == nil {
		return netip.Addr{}, errors.New("no external IP lookup service was provided")
	}
	ctx, cancel := context.WithTimeout(ctx, wr.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wr.serviceURL.String(), nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("http request returned %s", resp.Status)
	}

	// an address is at most 45 characters; anything longer is not one
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error reading response body: %w", err)
	}
	ip, err := netip.ParseAddr(strings.TrimSpace(string(body)))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error parsing IP address from response body: %w", err)
	}
	return ip, nil
}
