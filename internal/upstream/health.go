package upstream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Credential absence is a deployment problem, not a per-request one, so on
// top of the per-request prechecks the gateway probes both upstreams once at
// startup and on demand from the CLI.

const probeTimeout = 10 * time.Second

// Status is a point-in-time snapshot of the gateway's two remote
// dependencies. It is immutable; call HealthChecker.Refresh for a new one.
type Status struct {
	ConversionReady bool
	PreviewReady    bool
	ConversionError string
	PreviewError    string
	CheckedAt       time.Time
}

// OK reports whether both upstreams were usable at snapshot time.
func (s Status) OK() bool {
	return s.ConversionReady && s.PreviewReady
}

// HealthChecker probes the two upstream services. It is caller-owned and
// holds no mutable state of its own.
type HealthChecker struct {
	conversion *ConversionClient
	preview    *PreviewClient
}

// NewHealthChecker wraps the two clients for probing.
func NewHealthChecker(conversion *ConversionClient, preview *PreviewClient) *HealthChecker {
	return &HealthChecker{conversion: conversion, preview: preview}
}

// Refresh probes both upstreams concurrently and returns a fresh snapshot.
// A probe passes when the credential is present and the endpoint answers
// anything at all; an authorization rejection still proves reachability.
func (h *HealthChecker) Refresh(ctx context.Context) Status {
	status := Status{CheckedAt: time.Now()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := probe(ctx, h.conversion.httpClient, h.conversion.config.Endpoint, h.conversion.config.APIKey); err != nil {
			status.ConversionError = err.Error()
			return nil
		}
		status.ConversionReady = true
		return nil
	})
	g.Go(func() error {
		if err := probe(ctx, h.preview.httpClient, h.preview.config.Endpoint, h.preview.config.APIKey); err != nil {
			status.PreviewError = err.Error()
			return nil
		}
		status.PreviewReady = true
		return nil
	})
	_ = g.Wait() // probe errors are recorded in the snapshot, never returned

	return status
}

func probe(ctx context.Context, client *http.Client, endpoint, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("API key not configured")
	}
	if endpoint == "" {
		return fmt.Errorf("endpoint not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	req.Header.Set(apiKeyHeader, apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("endpoint unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}
