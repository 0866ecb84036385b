package storage

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/edgeprint/pkg/observability"
	"github.com/matzehuels/edgeprint/pkg/retry"
)

// Retrying wraps a Store so every call retries transient failures.
type Retrying struct {
	inner  Store
	policy retry.Policy
	logger *log.Logger
}

// NewRetrying wraps inner with policy. A nil logger disables retry logging.
func NewRetrying(inner Store, policy retry.Policy, logger *log.Logger) *Retrying {
	return &Retrying{inner: inner, policy: policy, logger: logger}
}

// Unwrap returns the wrapped store.
func (s *Retrying) Unwrap() Store {
	return s.inner
}

// policyFor returns the policy with a retry callback that logs and reports op.
func (s *Retrying) policyFor(ctx context.Context, op Op, path string) retry.Policy {
	p := s.policy
	p.OnRetry = func(attempt int, err error, delay time.Duration) {
		observability.Storage().OnRetry(ctx, string(op), path, attempt, err)
		if s.logger != nil {
			s.logger.Warn("storage call failed, retrying", "op", op, "path", path, "attempt", attempt, "delay", delay, "error", err)
		}
	}
	return p
}

// Download retries inner.Download.
func (s *Retrying) Download(ctx context.Context, path string) ([]byte, error) {
	start := time.Now()
	data, err := retry.Value(ctx, s.policyFor(ctx, OpDownload, path), func() ([]byte, error) {
		return s.inner.Download(ctx, path)
	})
	observability.Storage().OnDownload(ctx, path, len(data), time.Since(start), err)
	return data, err
}

// Upload retries inner.Upload.
func (s *Retrying) Upload(ctx context.Context, path string, data []byte) error {
	start := time.Now()
	err := retry.Do(ctx, s.policyFor(ctx, OpUpload, path), func() error {
		return s.inner.Upload(ctx, path, data)
	})
	observability.Storage().OnUpload(ctx, path, len(data), time.Since(start), err)
	return err
}

// List retries inner.List.
func (s *Retrying) List(ctx context.Context, prefix string) ([]string, error) {
	return retry.Value(ctx, s.policyFor(ctx, OpList, prefix), func() ([]string, error) {
		return s.inner.List(ctx, prefix)
	})
}

// Remove retries inner.Remove.
func (s *Retrying) Remove(ctx context.Context, prefix string) error {
	return retry.Do(ctx, s.policyFor(ctx, OpRemove, prefix), func() error {
		return s.inner.Remove(ctx, prefix)
	})
}

// Close closes the wrapped store.
func (s *Retrying) Close() error {
	return s.inner.Close()
}

// Ensure Retrying implements Store.
var _ Store = (*Retrying)(nil)
