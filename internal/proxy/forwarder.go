package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/promptreel/gateway/internal/logging"
	"github.com/promptreel/gateway/internal/metrics"
)

// Doer abstracts the upstream HTTP client for testing.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes where and how the forwarder reaches the backend.
type Config struct {
	// BackendBaseURL is the upstream origin, e.g. "https://api.example.com".
	BackendBaseURL string
	// Prefix is the local path prefix stripped before forwarding,
	// e.g. "/api/backend".
	Prefix string
	// Secret signs mutating requests. Empty means unsigned deployments
	// may still proxy reads, but mutations fail closed.
	Secret string
	// SignatureHeader and TimestampHeader carry the computed signature.
	// Caller-supplied values under these names are always dropped.
	SignatureHeader string
	TimestampHeader string
}

// Forwarder relays requests under Prefix to the backend, signing
// mutations. It holds no per-request state and is safe for concurrent
// use.
type Forwarder struct {
	cfg    Config
	client Doer
	// basePath is the path component of BackendBaseURL. The signature
	// must cover the path the backend observes, which includes it.
	basePath string
	nowFunc  func() time.Time
}

// New constructs a Forwarder. A nil client falls back to a default
// http.Client with a 30s timeout.
func New(cfg Config, client Doer) *Forwarder {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	cfg.BackendBaseURL = strings.TrimSuffix(cfg.BackendBaseURL, "/")
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = "X-PromptReel-Signature"
	}
	if cfg.TimestampHeader == "" {
		cfg.TimestampHeader = "X-PromptReel-Timestamp"
	}

	basePath := ""
	if u, err := url.Parse(cfg.BackendBaseURL); err == nil {
		basePath = strings.TrimSuffix(u.Path, "/")
	}

	return &Forwarder{cfg: cfg, client: client, basePath: basePath, nowFunc: time.Now}
}

// Hop-by-hop headers are meaningful only for the inbound connection and
// never forwarded.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Conditional request headers stripped from the 304 retry so the
// upstream answers with a full body.
var conditionalHeaders = []string{
	"If-Match",
	"If-Modified-Since",
	"If-None-Match",
	"If-Range",
	"If-Unmodified-Since",
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	suffix := strings.TrimPrefix(r.URL.Path, f.cfg.Prefix)
	if !strings.HasPrefix(suffix, "/") {
		suffix = "/" + suffix
	}

	if containsTraversal(suffix) {
		logger.Warn("proxy rejected traversal path", "path", r.URL.Path)
		respondError(w, http.StatusBadRequest, "invalid path")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Warn("proxy failed to read request body", "error", err)
		respondError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	if mutating(r.Method) && f.cfg.Secret == "" {
		logger.Error("proxy signing secret not configured", "method", r.Method, "path", suffix)
		respondError(w, http.StatusInternalServerError, "request signing unavailable")
		return
	}

	upstream, err := f.buildUpstream(r, suffix, body, false)
	if err != nil {
		logger.Error("proxy failed to build upstream request", "error", err)
		respondError(w, http.StatusInternalServerError, "proxy failure")
		return
	}

	resp, err := f.client.Do(upstream)
	if err != nil {
		logger.Error("proxy upstream unreachable", "error", err, "path", suffix)
		metrics.ProxyForwards.WithLabelValues(r.Method, "gateway_error").Inc()
		respondError(w, http.StatusBadGateway, "backend unreachable")
		return
	}

	if resp.StatusCode == http.StatusNotModified {
		// A 304 with no usable local cache leaves the client with an
		// empty body, so force one full refetch without conditionals.
		retry, err := f.buildUpstream(r, suffix, body, true)
		if err == nil {
			if retryResp, retryErr := f.client.Do(retry); retryErr == nil {
				drain(resp)
				resp = retryResp
			} else {
				logger.Warn("proxy 304 refetch failed, returning original response", "error", retryErr)
			}
		}
	}
	defer drain(resp)

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	metrics.ProxyForwards.WithLabelValues(r.Method, statusClass(resp.StatusCode)).Inc()

	if bodyless(resp.StatusCode) {
		return
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Warn("proxy response copy interrupted", "error", err)
	}
}

// buildUpstream constructs the outbound request, re-signing mutations.
// stripConditional removes the conditional headers for the 304 refetch.
func (f *Forwarder) buildUpstream(r *http.Request, suffix string, body []byte, stripConditional bool) (*http.Request, error) {
	target := f.cfg.BackendBaseURL + suffix
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	upstream, err := http.NewRequestWithContext(r.Context(), r.Method, target, reader)
	if err != nil {
		return nil, err
	}

	for name, values := range r.Header {
		if skipForwardHeader(name) {
			continue
		}
		for _, v := range values {
			upstream.Header.Add(name, v)
		}
	}

	// Never trust caller-supplied signature material.
	upstream.Header.Del(f.cfg.SignatureHeader)
	upstream.Header.Del(f.cfg.TimestampHeader)

	if stripConditional {
		for _, name := range conditionalHeaders {
			upstream.Header.Del(name)
		}
	}

	if mutating(r.Method) {
		signature, timestamp := signRequest(f.cfg.Secret, f.nowFunc().Unix(), r.Method, f.basePath+suffix, body)
		upstream.Header.Set(f.cfg.SignatureHeader, signature)
		upstream.Header.Set(f.cfg.TimestampHeader, timestamp)
	}

	return upstream, nil
}

func containsTraversal(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		if strings.Contains(segment, "..") {
			return true
		}
	}
	return false
}

func skipForwardHeader(name string) bool {
	for _, hop := range hopByHopHeaders {
		if http.CanonicalHeaderKey(hop) == http.CanonicalHeaderKey(name) {
			return true
		}
	}
	switch http.CanonicalHeaderKey(name) {
	case "Host", "Content-Length":
		return true
	}
	return false
}

func copyResponseHeaders(dst, src http.Header) {
	for name, values := range src {
		if skipForwardHeader(name) {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
	// The transport recomputes Content-Length from the copied bytes.
	dst.Del("Content-Length")
}

func bodyless(status int) bool {
	return status == http.StatusNoContent || status == http.StatusNotModified
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "upstream_5xx"
	case status >= 400:
		return "upstream_4xx"
	default:
		return "ok"
	}
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
