package backend

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Probe checks the analytical backend's health endpoint before each run.
type Probe struct {
	url    string
	client *http.Client
	logger *log.Logger
}

// Option configures the probe.
type Option func(*Probe)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Probe) {
		if client != nil {
			p.client = client
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Probe) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProbe constructs a health probe for url. timeout bounds each check.
func NewProbe(url string, timeout time.Duration, opts ...Option) (*Probe, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("backend probe: empty url")
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	p := &Probe{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Available reports whether the health endpoint answered 2xx.
func (p *Probe) Available(ctx context.Context) bool {
	if p == nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.logger.Printf("backend probe: build request err=%v", err)
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Printf("backend probe: unreachable url=%s err=%v", p.url, err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Printf("backend probe: unhealthy url=%s status=%d", p.url, resp.StatusCode)
		return false
	}
	return true
}
