// Package liveness classifies whether a site URL still serves a live page.
package liveness

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ericfisherdev/credreview/internal/domain/model"
	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
)

const (
	// DefaultTimeout bounds a whole probe, HEAD and GET included.
	DefaultTimeout = 8 * time.Second

	// sampleLimit is how much of a GET body is inspected.
	sampleLimit = 64 * 1024

	userAgent = "Mozilla/5.0 (compatible; PasswordManagerProbe/1.0)"
	accept    = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// Compile-time interface satisfaction check.
var _ driven.SiteProber = (*Prober)(nil)

var (
	schemePattern      = regexp.MustCompile(`(?i)^https?://`)
	inspectablePattern = regexp.MustCompile(`(?i)text|html|json`)

	// notFoundPhrases detect custom not-found pages served with 200. A page
	// is dead when its title mentions 404 or at least two phrases match.
	notFoundPhrases = []*regexp.Regexp{
		regexp.MustCompile(`page not found`),
		regexp.MustCompile(`404\s*-?\s*not found`),
		regexp.MustCompile(`error\s*404`),
		regexp.MustCompile(`<title>\s*404`),
		regexp.MustCompile(`we could not find the page`),
		regexp.MustCompile(`the page you requested could not be found`),
		regexp.MustCompile(`no such page`),
		regexp.MustCompile(`not found`),
		regexp.MustCompile(`sorry, .* not found`),
	}
)

// Prober probes sites directly: HEAD first, then GET with body heuristics.
type Prober struct {
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewProber creates a Prober. A non-positive timeout uses DefaultTimeout.
func NewProber(timeout time.Duration, logger *slog.Logger) *Prober {
	return NewProberWithHTTPClient(&http.Client{}, timeout, logger)
}

// NewProberWithHTTPClient creates a Prober with a custom http.Client.
func NewProberWithHTTPClient(httpClient *http.Client, timeout time.Duration, logger *slog.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{http: httpClient, timeout: timeout, logger: logger}
}

// NormalizeURL trims raw and prefixes https:// when no http(s) scheme is
// present. It returns "" for blank input.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !schemePattern.MatchString(u) {
		u = "https://" + u
	}
	return u
}

// Probe classifies rawURL. Network failures, timeouts and cancellation all
// yield an unknown result; Probe never returns an error.
func (p *Prober) Probe(ctx context.Context, rawURL string) model.ProbeResult {
	target := NormalizeURL(rawURL)
	if target == "" {
		return model.UnknownProbeResult()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	if status, ok := p.head(ctx, target); ok && status >= 200 && status <= 299 {
		return result(model.SiteStatusAlive, status, time.Since(start))
	}

	req, err := p.request(ctx, http.MethodGet, target)
	if err != nil {
		return model.UnknownProbeResult()
	}
	resp, err := p.http.Do(req)
	if err != nil {
		p.logger.Debug("probe failed", "url", target, "error", err)
		return model.UnknownProbeResult()
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)

	if resp.StatusCode >= 400 {
		return result(model.SiteStatusDead, resp.StatusCode, elapsed)
	}
	if !inspectablePattern.MatchString(resp.Header.Get("Content-Type")) {
		return result(model.SiteStatusAlive, resp.StatusCode, elapsed)
	}

	// A body that cannot be read is treated as empty.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, sampleLimit))
	if LooksNotFound(string(body)) {
		return result(model.SiteStatusDead, resp.StatusCode, elapsed)
	}
	return result(model.SiteStatusAlive, resp.StatusCode, elapsed)
}

// head reports the HEAD status, or ok=false when no response arrived.
func (p *Prober) head(ctx context.Context, target string) (int, bool) {
	req, err := p.request(ctx, http.MethodHead, target)
	if err != nil {
		return 0, false
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return 0, false
	}
	resp.Body.Close()
	return resp.StatusCode, true
}

func (p *Prober) request(ctx context.Context, method, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	return req, nil
}

// LooksNotFound applies the not-found heuristics to a page sample.
func LooksNotFound(sample string) bool {
	sample = strings.ToLower(sample)
	if strings.Contains(pageTitle(sample), "404") {
		return true
	}

	matches := 0
	for _, rx := range notFoundPhrases {
		if rx.MatchString(sample) {
			matches++
		}
	}
	return matches >= 2
}

// pageTitle returns the text of the first <title> element, or "".
func pageTitle(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return ""
	}

	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			return sb.String()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if t := find(c); t != "" {
				return t
			}
		}
		return ""
	}
	return find(root)
}

func result(status model.SiteStatus, httpStatus int, elapsed time.Duration) model.ProbeResult {
	ms := int(elapsed.Milliseconds())
	return model.ProbeResult{Status: status, HTTPStatus: &httpStatus, TimeMs: &ms}
}
