package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/dnscache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var ErrLookupFailed = errors.New("geoip: lookup failed")

const defaultTimeout = 2 * time.Second

type proxycheckEntry struct {
	IsoCode string `json:"isocode"`
	Country string `json:"country"`
}

// ProxyCheck queries the proxycheck.io v2 API.
type ProxyCheck struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	budget  *rate.Limiter
}

type Option func(*ProxyCheck)

// WithRequestBudget caps outbound lookups. Calls over budget fail without
// reaching the provider.
func WithRequestBudget(perSecond float64, burst int) Option {
	return func(p *ProxyCheck) {
		if perSecond <= 0 {
			p.budget = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.budget = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewProxyCheck(baseURL, apiKey string, timeout time.Duration, resolver *dnscache.Resolver, opts ...Option) *ProxyCheck {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if resolver != nil {
		transport.DialContext = dialWithCache(resolver)
	}

	p := &ProxyCheck{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Transport: transport},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func dialWithCache(resolver *dnscache.Resolver) func(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ips, err := resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}
		var lastErr error
		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		if lastErr == nil {
			lastErr = &net.DNSError{Err: "no IP addresses found", Name: host}
		}
		return nil, lastErr
	}
}

func (p *ProxyCheck) Country(ctx context.Context, ip string) (string, error) {
	if ip == "" {
		return "", nil
	}
	if p.budget != nil && !p.budget.Allow() {
		return "", fmt.Errorf("%w: request budget exhausted", ErrLookupFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v2/%s", p.baseURL, url.PathEscape(ip))
	if p.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(p.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrLookupFailed, err)
	}

	var status string
	if raw, ok := body["status"]; ok {
		_ = json.Unmarshal(raw, &status)
	}
	if status == "error" || status == "denied" {
		return "", fmt.Errorf("%w: provider status %q", ErrLookupFailed, status)
	}

	raw, ok := body[ip]
	if !ok {
		zap.L().Debug("[GeoIP] no entry for address", zap.String("status", status))
		return "", nil
	}

	var entry proxycheckEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", fmt.Errorf("%w: decode entry: %v", ErrLookupFailed, err)
	}

	return ToAlpha3(entry.IsoCode), nil
}
