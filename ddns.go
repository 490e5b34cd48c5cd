package cfddns

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// Version is reported in the User-Agent of every request.
const Version = "1.0.0"

var discard = newDiscardLogger()

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// New returns a Workflow operating on settings.
//
// settings is read and modified in place; store persists it at the points documented on each operation.
// Unless configured otherwise the workflow talks to the Cloudflare API,
// resolves the public address with DefaultIPServiceURL,
// discards its log output and status messages,
// and bounds each request by DefaultTimeout.
func New(settings *Settings, store SettingsStore, options ...Option) (*Workflow, error) {
	if settings == nil {
		return nil, errors.New("cfddns.New: settings cannot be nil")
	}
	if store == nil {
		return nil, errors.New("cfddns.New: a settings store is required")
	}
	w := &Workflow{
		settings:      settings,
		store:         store,
		ui:            discardUI{},
		logger:        discard,
		timeout:       DefaultTimeout,
		now:           time.Now,
		cloudflareURL: DefaultCloudflareURL,
	}
	for i, opt := range options {
		if err := opt(w); err != nil {
			return nil, fmt.Errorf("cfddns.New: option %d returned an error: %s", i, err)
		}
	}

	if w.resolver == nil {
		wr, err := NewWebResolver(DefaultIPServiceURL)
		if err != nil {
			return nil, fmt.Errorf("cfddns.New: %w", err)
		}
		w.resolver = wr
	}

	// this lets options be given in any order; dependencies pick up the shared settings at the end
	w.configureResolver()
	return w, nil
}

// Option configures a Workflow.
type Option func(*Workflow) error

// UsingCloudflareURL overrides the Cloudflare API base URL.
func UsingCloudflareURL(baseURL string) Option {
	return func(w *Workflow) error {
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("error parsing URL: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%q is not an absolute URL", baseURL)
		}
		w.cloudflareURL = baseURL
		return nil
	}
}

// UsingProvider replaces the Cloudflare client with providers built by factory.
func UsingProvider(factory ProviderFactory) Option {
	return func(w *Workflow) error {
		if factory == nil {
			return errors.New("provider factory cannot be nil")
		}
		w.newProvider = factory
		return nil
	}
}

func UsingResolver(resolver Resolver) Option {
	return func(w *Workflow) error {
		w.resolver = resolver
		return nil
	}
}

// UsingWebResolver resolves the public address with the web service at serviceURL.
func UsingWebResolver(serviceURL string) Option {
	return func(w *Workflow) error {
		wr, err := NewWebResolver(serviceURL)
		if err != nil {
			return err
		}
		w.resolver = wr
		return nil
	}
}

func UsingHTTPClient(httpclient *http.Client) Option {
	return func(w *Workflow) error {
		w.httpClient = httpclient
		return nil
	}
}

// WithTimeout bounds every request made by the workflow.
func WithTimeout(d time.Duration) Option {
	return func(w *Workflow) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive; got %s", d)
		}
		w.timeout = d
		return nil
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(w *Workflow) error {
		if logger == nil {
			logger = discard
		}
		w.logger = logger
		return nil
	}
}

// WithUI sets the sink for status messages.
func WithUI(ui UI) Option {
	return func(w *Workflow) error {
		if ui == nil {
			ui = discardUI{}
		}
		w.ui = ui
		return nil
	}
}

func WithMetrics(m *Metrics) Option {
	return func(w *Workflow) error {
		w.metrics = m
		return nil
	}
}

// WithClock sets the clock used for record comments and metrics timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		w.now = now
		return nil
	}
}

func (w *Workflow) configureResolver() {
	type setLogger interface {
		SetLogger(logrus.FieldLogger)
	}
	type setHTTPClient interface {
		SetHTTPClient(*http.Client)
	}
	type setMetrics interface {
		SetMetrics(*Metrics)
	}
	type setTimeout interface {
		SetTimeout(time.Duration)
	}

	if r, ok := w.resolver.(setLogger); ok {
		r.SetLogger(w.logger)
	}
	if r, ok := w.resolver.(setHTTPClient); ok && w.httpClient != nil {
		r.SetHTTPClient(w.httpClient)
	}
	if r, ok := w.resolver.(setMetrics); ok {
		r.SetMetrics(w.metrics)
	}
	if r, ok := w.resolver.(setTimeout); ok {
		r.SetTimeout(w.timeout)
	}
}

// provider returns a Provider scoped to token.
func (w *Workflow) provider(token string, logger logrus.FieldLogger) Provider {
	if w.newProvider != nil {
		return w.newProvider(token)
	}
	return NewCloudflareClient(token,
		CloudflareURL(w.cloudflareURL),
		CloudflareHTTPClient(w.httpClient),
		CloudflareTimeout(w.timeout),
		CloudflareLogger(logger),
		CloudflareMetrics(w.metrics),
		CloudflareClock(w.now),
	)
}
