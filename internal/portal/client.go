// Package portal speaks the Stalker middleware protocol used by MAG-style
// set-top boxes: handshake, catalog listing and create_link resolution.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/voyagen/stalker2m3u/internal/logging"
	"github.com/voyagen/stalker2m3u/internal/metrics"
)

// Emulated device identity. Portals whitelist MAG boxes by these values.
const (
	UserAgent  = "Mozilla/5.0 (QtEmbedded; U; Linux; C) AppleWebKit/533.3 (KHTML, like Gecko) MAG200 stbapp ver: 2 rev: 250 Safari/533.3"
	XUserAgent = "Model: MAG250; Link: WiFi"

	cookieLang     = "en"
	cookieTimezone = "Europe/London"

	endpointFile   = "portal.php"
	DefaultTimeout = 30 * time.Second

	maxErrorBodyReadSize = 512
)

// Client is a single portal session. It is not safe to share across
// conversions: the token belongs to one run.
type Client struct {
	endpoint   string
	mac        string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for portal calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout replaces the HTTP client with one using timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithRateLimit paces requests to rps per second. Zero disables pacing.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the portal at portalURL using the device
// identity mac. mac is normalized with NormalizeMAC.
func NewClient(portalURL, mac string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   EndpointURL(portalURL),
		mac:        NormalizeMAC(mac),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logging.WithComponent("portal"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EndpointURL derives the portal.php URL from a user supplied portal URL.
// "http://host/c/" and "http://host" both map to "http://host/portal.php";
// a URL already pointing at a .php file is kept.
func EndpointURL(portalURL string) string {
	u := strings.TrimSpace(portalURL)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if strings.HasSuffix(strings.ToLower(u), ".php") {
		return u
	}
	u = strings.TrimRight(u, "/")
	u = strings.TrimSuffix(u, "/c")
	return u + "/" + endpointFile
}

// Endpoint returns the resolved portal.php URL.
func (c *Client) Endpoint() string { return c.endpoint }

// MAC returns the normalized device identity.
func (c *Client) MAC() string { return c.mac }

// Token returns the session token, empty before Handshake.
func (c *Client) Token() string { return c.token }

// Handshake obtains a session token and keeps it for subsequent calls.
func (c *Client) Handshake(ctx context.Context) (string, error) {
	q := NewQuery("stb", "handshake").Add("token", "")
	env, err := c.RawGet(ctx, q)
	if err != nil {
		var pe *ProtocolError
		if errors.As(err, &pe) {
			if pe.StatusCode != 0 {
				return "", &ProtocolError{Action: "handshake", StatusCode: pe.StatusCode, Kind: ErrHandshakeFailed}
			}
			return "", &ProtocolError{Action: "handshake", Kind: ErrMissingToken, Detail: pe.Detail}
		}
		return "", err
	}
	var data handshakeData
	if err := env.Decode(&data); err != nil || strings.TrimSpace(data.Token) == "" {
		return "", &ProtocolError{Action: "handshake", Kind: ErrMissingToken}
	}
	c.token = strings.TrimSpace(data.Token)
	c.logger.Debug().Str("endpoint", c.endpoint).Msg("handshake ok")
	return c.token, nil
}

// RawGet issues one GET against portal.php with q and returns the decoded
// envelope. All device headers and the bearer token are applied here.
func (c *Client) RawGet(ctx context.Context, q Query) (*Envelope, error) {
	action := q.Action()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Action: action, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Action: action, Err: fmt.Errorf("NewRequest: %w", err)}
	}
	c.applyHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.PortalRequestsTotal.WithLabelValues(action, "transport_error").Inc()
		return nil, &TransportError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("action", action).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("portal request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.PortalRequestsTotal.WithLabelValues(action, "http_error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyReadSize))
		return nil, &ProtocolError{
			Action:     action,
			StatusCode: resp.StatusCode,
			Kind:       ErrHTTPStatus,
			Detail:     strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.PortalRequestsTotal.WithLabelValues(action, "transport_error").Inc()
		return nil, &TransportError{Action: action, Err: fmt.Errorf("ReadAll: %w", err)}
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		metrics.PortalRequestsTotal.WithLabelValues(action, "malformed").Inc()
		return nil, &ProtocolError{Action: action, Kind: ErrMalformedResponse, Detail: err.Error()}
	}
	if len(env.JS) == 0 || string(env.JS) == "null" {
		metrics.PortalRequestsTotal.WithLabelValues(action, "malformed").Inc()
		return nil, &ProtocolError{Action: action, Kind: ErrMalformedResponse, Detail: "missing js envelope"}
	}
	metrics.PortalRequestsTotal.WithLabelValues(action, "ok").Inc()
	return &env, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-User-Agent", XUserAgent)
	req.Header.Set("Cookie", fmt.Sprintf("mac=%s; stb_lang=%s; timezone=%s",
		url.QueryEscape(c.mac), cookieLang, cookieTimezone))
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
