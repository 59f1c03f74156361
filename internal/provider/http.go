package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultMaxResults = 20
	maxBodyBytes      = 4 << 20
	userAgent         = "faveit-search/1.0"
	maxErrorBytes     = 256
)

// Config configures one HTTP-backed provider.
type Config struct {
	Name         string
	BaseURL      string
	APIKey       string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
	MaxResults   int
}

// httpProvider is the transport shared by the HTTP adapters.
type httpProvider struct {
	cfg    Config
	client *http.Client
}

func newHTTPProvider(cfg Config, client *http.Client) *httpProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	client.Timeout = cfg.Timeout

	return &httpProvider{cfg: cfg, client: client}
}

func (p *httpProvider) Name() string {
	return p.cfg.Name
}

// getJSON issues GET base+path?params and returns the parsed body. Every
// failure comes back as *Error.
func (p *httpProvider) getJSON(ctx context.Context, path string, params url.Values) (gjson.Result, error) {
	endpoint := p.cfg.BaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, &Error{Provider: p.cfg.Name, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return gjson.Result{}, &Error{Provider: p.cfg.Name, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return gjson.Result{}, &Error{Provider: p.cfg.Name, StatusCode: resp.StatusCode, Message: "read body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return gjson.Result{}, &Error{Provider: p.cfg.Name, StatusCode: resp.StatusCode, Message: truncate(strings.TrimSpace(string(body)), maxErrorBytes)}
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &Error{Provider: p.cfg.Name, StatusCode: resp.StatusCode, Message: "invalid JSON response"}
	}
	return gjson.ParseBytes(body), nil
}

// requireArray fails when the payload does not carry the expected list, so a
// malformed answer is never mistaken for zero hits.
func (p *httpProvider) requireArray(doc gjson.Result, path string) (gjson.Result, error) {
	arr := doc.Get(path)
	if !arr.IsArray() {
		return gjson.Result{}, &Error{Provider: p.cfg.Name, Message: fmt.Sprintf("response missing %q", path)}
	}
	return arr, nil
}

func stringList(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// yearOf reads a year from either a number or a date string like "2010-07-16".
func yearOf(r gjson.Result) int {
	switch r.Type {
	case gjson.Number:
		return int(r.Int())
	case gjson.String:
		s := r.String()
		if len(s) >= 4 {
			var y int
			if _, err := fmt.Sscanf(s[:4], "%d", &y); err == nil {
				return y
			}
		}
	}
	return 0
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
