// Package rates fetches currency exchange rates from the Croatian National
// Bank exchange rate list (api.hnb.hr, tecajn-eur/v3).
//
// The list is EUR based: every record quotes one currency against the euro.
// Only the middle rate of the first record is consumed. Each call performs a
// fresh request; there is no caching and no retry.
package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnavailable is wrapped by every error returned from Client.Rate.
var ErrUnavailable = errors.New("exchange rate unavailable")

// Middle rate field names accepted in a rate record.
const (
	fieldHNB     = "srednji_tecaj"
	fieldGeneric = "middle_rate"
)

// DefaultURL is the HNB exchange rate list endpoint.
const DefaultURL = "https://api.hnb.hr/tecajn-eur/v3"

// Config holds the rate source settings.
type Config struct {
	// URL of the rate list; the quote currency is passed as ?valuta=.
	URL string
	// Base is the only base currency the source quotes against.
	Base string
	// Timeout bounds a single lookup including reading the body.
	Timeout time.Duration
}

// Option configures optional Client dependencies.
type Option func(*options)

type options struct {
	transport      http.RoundTripper
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTransport overrides the base HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTracerProvider sets the tracer provider for outgoing request spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider for outgoing request metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// Client looks up exchange rates over HTTP.
type Client struct {
	url  string
	base string
	http *http.Client
}

// New creates a Client. Empty config fields fall back to the HNB defaults.
func New(cfg Config, opts ...Option) *Client {
	o := options{transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Base == "" {
		cfg.Base = "EUR"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	var otelOpts []otelhttp.Option
	if o.tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(o.tracerProvider))
	}
	if o.meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(o.meterProvider))
	}

	return &Client{
		url:  strings.TrimRight(cfg.URL, "/"),
		base: strings.ToUpper(cfg.Base),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(o.transport, otelOpts...),
		},
	}
}

// Rate returns the middle rate for converting base into quote.
func (c *Client) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	if !strings.EqualFold(base, c.base) {
		return decimal.Decimal{}, errors.Wrapf(ErrUnavailable, "unsupported base currency %q", base)
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return decimal.Decimal{}, unavailable("parse url", err)
	}
	q := u.Query()
	q.Set("valuta", strings.ToUpper(quote))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Decimal{}, unavailable("create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Decimal{}, unavailable("request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return decimal.Decimal{}, fmt.Errorf("%w: status=%d", ErrUnavailable, resp.StatusCode)
	}

	raw, err := decodeMiddleRate(jx.Decode(resp.Body, 1024))
	if err != nil {
		return decimal.Decimal{}, unavailable("decode response", err)
	}

	rate, err := ParseRate(raw)
	if err != nil {
		return decimal.Decimal{}, unavailable("parse rate", err)
	}
	return rate, nil
}

// ParseRate parses a middle rate written with either a decimal comma or a
// decimal point. The rate must be positive.
func ParseRate(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "invalid rate %q", raw)
	}
	if !rate.IsPositive() {
		return decimal.Decimal{}, errors.Errorf("non-positive rate %q", raw)
	}
	return rate, nil
}

// decodeMiddleRate reads the middle rate of the first record of a rate list.
// Remaining records are skipped.
func decodeMiddleRate(d *jx.Decoder) (string, error) {
	if tt := d.Next(); tt != jx.Array {
		return "", errors.Errorf("expected array, got %s", tt)
	}

	var (
		raw     string
		found   bool
		records int
	)
	err := d.Arr(func(d *jx.Decoder) error {
		records++
		if records > 1 {
			return d.Skip()
		}
		if tt := d.Next(); tt != jx.Object {
			return errors.Errorf("expected object record, got %s", tt)
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			if found || (key != fieldHNB && key != fieldGeneric) {
				return d.Skip()
			}
			switch tt := d.Next(); tt {
			case jx.String:
				s, err := d.Str()
				if err != nil {
					return err
				}
				raw = s
			case jx.Number:
				n, err := d.Num()
				if err != nil {
					return err
				}
				raw = n.String()
			default:
				return errors.Errorf("unexpected %s for %q", tt, key)
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	if records == 0 {
		return "", errors.New("empty rate list")
	}
	if !found {
		return "", errors.Errorf("first record has no %q field", fieldHNB)
	}
	return raw, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
