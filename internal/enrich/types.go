// Package enrich orchestrates a company enrichment: admission control, the
// tiered cache, per-key deduplication, page fetching with retries and the
// extraction cascade.
package enrich

import (
	"context"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/extraction"
)

// Request is one enrichment call.
type Request struct {
	URL       string
	SubjectID string
	Force     bool
	// Identity is the rate limit identity of the caller
	Identity string
}

// Source is a page that contributed to a result.
type Source struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// Response is the enrichment result returned to callers and stored in the cache.
type Response struct {
	Summary          string            `json:"summary"`
	WhatTheyDo       []string          `json:"whatTheyDo"`
	Keywords         []string          `json:"keywords"`
	Signals          []string          `json:"signals"`
	Sources          []Source          `json:"sources"`
	EnrichedAt       time.Time         `json:"enrichedAt"`
	Cached           bool              `json:"cached"`
	ExtractionMethod extraction.Method `json:"extractionMethod"`
}

// PageFetcher retrieves the target page and probes its auxiliary pages.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
	AuxiliarySources(ctx context.Context, url string) []string
}

// Extractor turns page text into a structured result. It fails only when
// ctx is done.
type Extractor interface {
	Extract(ctx context.Context, content, targetURL string) (extraction.Result, error)
}

// Config holds the retry and cache policy of the service.
type Config struct {
	MaxRetries   int
	FetchRetries int
	RetryDelay   time.Duration
	CacheTTL     time.Duration
	// LockTTL is the expiry of the cross-instance lock; it is renewed while held.
	LockTTL time.Duration
}

// DefaultConfig returns the service defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		FetchRetries: 2,
		RetryDelay:   time.Second,
		CacheTTL:     7 * 24 * time.Hour,
		LockTTL:      2 * time.Minute,
	}
}
