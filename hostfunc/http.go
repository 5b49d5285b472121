package hostfunc

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caffeineduck/pagekit/serial"
)

const (
	DefaultMaxURLLength   = 8192
	DefaultMaxBodySize    = 1 << 20 // 1MB
	DefaultRequestTimeout = 30 * time.Second
)

type HTTPConfig struct {
	AllowedHosts   []string
	MaxBodySize    int64
	MaxURLLength   int
	RequestTimeout time.Duration
}

// HTTP performs fetches on behalf of page scripts. Only hosts in
// AllowedHosts (or their subdomains) are reachable.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.MaxURLLength == 0 {
		cfg.MaxURLLength = DefaultMaxURLLength
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	return &HTTP{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// Register adds http_request and the per-method shortcuts to r, each under
// both its http_ and ltk_ name.
func (h *HTTP) Register(r *Registry) {
	r.Register("http_request", h.Request)
	for _, method := range []string{"GET", "POST", "DELETE"} {
		fn := h.method(method)
		name := strings.ToLower(method)
		r.Register("http_"+name, fn)
		r.Register("ltk_"+name, fn)
	}
}

// Request performs the fetch described by args, decoded as an HTTPRequest.
func (h *HTTP) Request(ctx context.Context, args map[string]any) (any, error) {
	var req HTTPRequest
	if err := bind(args, &req); err != nil {
		return nil, err
	}
	return h.Do(ctx, req)
}

// Do performs one fetch. Object bodies are sent as their JSON text, the way
// ltk_post serializes its payload.
func (h *HTTP) Do(ctx context.Context, r HTTPRequest) (HTTPResponse, error) {
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case "GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS":
	default:
		return HTTPResponse{}, fmt.Errorf("unsupported method: %s", method)
	}

	target, err := h.checkURL(r.URL)
	if err != nil {
		return HTTPResponse{}, err
	}

	var body io.Reader
	if payload := requestBody(r.Body); payload != "" {
		if int64(len(payload)) > h.cfg.MaxBodySize {
			return HTTPResponse{}, fmt.Errorf("request body exceeds max size")
		}
		body = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return HTTPResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, serial.Coerce(v))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return HTTPResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.cfg.MaxBodySize))
	if err != nil {
		return HTTPResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	out := HTTPResponse{
		Status:  resp.StatusCode,
		OK:      resp.StatusCode >= 200 && resp.StatusCode < 300,
		Body:    string(data),
		Headers: make(map[string]string, len(resp.Header)),
	}
	for k, v := range resp.Header {
		if len(v) > 0 {
			out.Headers[k] = v[0]
		}
	}
	return out, nil
}

// checkURL enforces the length limit, the scheme and the host allow list.
func (h *HTTP) checkURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("url required")
	}
	if len(rawURL) > h.cfg.MaxURLLength {
		return nil, fmt.Errorf("url exceeds max length")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme must be http or https")
	}
	if len(h.cfg.AllowedHosts) == 0 {
		return nil, fmt.Errorf("http not enabled")
	}
	if host := u.Hostname(); !h.isHostAllowed(host) {
		return nil, fmt.Errorf("host not allowed: %s", host)
	}
	return u, nil
}

func requestBody(v any) string {
	switch b := v.(type) {
	case nil:
		return ""
	case string:
		return b
	default:
		return serial.ToText(b)
	}
}

// isHostAllowed matches IPs by value and names by exact or subdomain match.
func (h *HTTP) isHostAllowed(host string) bool {
	ip := net.ParseIP(host)
	for _, allowed := range h.cfg.AllowedHosts {
		if ip != nil {
			if allowedIP := net.ParseIP(allowed); allowedIP != nil && allowedIP.Equal(ip) {
				return true
			}
			continue
		}
		if strings.EqualFold(host, allowed) || strings.HasSuffix(strings.ToLower(host), "."+strings.ToLower(allowed)) {
			return true
		}
	}
	return false
}

func (h *HTTP) method(method string) Func {
	return func(ctx context.Context, args map[string]any) (any, error) {
		var req HTTPRequest
		if err := bind(args, &req); err != nil {
			return nil, err
		}
		req.Method = method
		return h.Do(ctx, req)
	}
}

func NewHTTPGet(cfg HTTPConfig) Func {
	return NewHTTP(cfg).method("GET")
}

func NewHTTPPost(cfg HTTPConfig) Func {
	return NewHTTP(cfg).method("POST")
}

func NewHTTPDelete(cfg HTTPConfig) Func {
	return NewHTTP(cfg).method("DELETE")
}
