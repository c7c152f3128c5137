// Package fetch retrieves company web pages and turns them into plain text
// for extraction.
package fetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	commonhttp "github.com/SurajPatil2645/VentureFlow/internal/common/http"
	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
)

// DefaultUserAgent identifies the crawler to the sites it visits
const DefaultUserAgent = "Mozilla/5.0 (compatible; VentureFlow VC Intelligence)"

// Config controls outbound page fetches
type Config struct {
	UserAgent    string
	PageTimeout  time.Duration
	AuxTimeout   time.Duration
	MaxBodyBytes int64
}

// DefaultConfig returns the fetch defaults
func DefaultConfig() Config {
	return Config{
		UserAgent:    DefaultUserAgent,
		PageTimeout:  10 * time.Second,
		AuxTimeout:   3 * time.Second,
		MaxBodyBytes: 5 << 20,
	}
}

// Fetcher performs GET requests against company websites
type Fetcher struct {
	client *http.Client
	config Config
	logger logging.Logger
}

// NewFetcher creates a fetcher. A nil client gets one built from the shared
// client factory with the page timeout applied.
func NewFetcher(config Config, client *http.Client, logger logging.Logger) *Fetcher {
	defaults := DefaultConfig()
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.PageTimeout <= 0 {
		config.PageTimeout = defaults.PageTimeout
	}
	if config.AuxTimeout <= 0 {
		config.AuxTimeout = defaults.AuxTimeout
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if client == nil {
		client = commonhttp.NewClient(config.PageTimeout)
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Fetcher{
		client: client,
		config: config,
		logger: logger.WithFields(logging.String("component", "fetcher")),
	}
}

// FetchPage downloads the page body. Transport failures and non-2xx
// responses are returned as fetch errors so callers may retry them.
func (f *Fetcher) FetchPage(ctx context.Context, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.PageTimeout)
	defer cancel()

	resp, err := f.get(ctx, target)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	if err != nil {
		return "", errors.FetchError("Failed to read response body", err).WithContext("url", target)
	}

	f.logger.Debug("Fetched page",
		logging.String("url", target),
		logging.Int("bytes", len(body)),
	)
	return string(body), nil
}

// Probe reports whether the page answers with a 2xx status within the
// auxiliary timeout. The body is discarded.
func (f *Fetcher) Probe(ctx context.Context, target string) error {
	resp, err := f.get(ctx, target)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, f.config.MaxBodyBytes))
	return resp.Body.Close()
}

// AuxiliarySources probes the well-known secondary pages of the target site
// and returns the reachable ones in probe order. Failures are dropped.
func (f *Fetcher) AuxiliarySources(ctx context.Context, target string) []string {
	pages, err := AuxiliaryPages(target)
	if err != nil {
		return nil
	}

	return Gather(ctx, pages, f.config.AuxTimeout, func(ctx context.Context, page string) (string, error) {
		if err := f.Probe(ctx, page); err != nil {
			f.logger.Debug("Auxiliary page unavailable",
				logging.String("url", page),
				logging.Err(err),
			)
			return "", err
		}
		return page, nil
	})
}

func (f *Fetcher) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.ValidationError("Invalid URL format").WithContext("url", target)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, errors.TimeoutError("page fetch", err).WithContext("url", target)
		}
		return nil, errors.FetchError("Failed to fetch URL", err).WithContext("url", target)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, errors.FetchError(fmt.Sprintf("Failed to fetch URL: %s", resp.Status), nil).
			WithContext("url", target).
			WithContext("status", resp.StatusCode)
	}
	return resp, nil
}

// AuxiliaryPages lists the secondary pages checked for every enrichment
func AuxiliaryPages(target string) ([]string, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.ValidationError("Invalid URL format")
	}

	origin := u.Scheme + "://" + u.Host
	return []string{
		origin + "/about",
		origin + "/careers",
		origin + "/blog",
		origin + "/changelog",
	}, nil
}
