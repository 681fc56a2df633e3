// Package embedding wraps the external embedding model as a minimal
// capability object. The core never binds to a concrete model or runtime; it
// only calls Embed and degrades without failing the caller's operation
// when the model is slow or absent.
package embedding

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yantra-mind/memoryd/core/apperr"
	"github.com/yantra-mind/memoryd/core/vector"
)

// Provider is the minimal contract an embedding model must satisfy,
// decoupled from any specific model runtime.
type Provider interface {
	Embed(ctx context.Context, text string) (vector.Vector, error)
	Dim() int
}

// Embedder wraps a Provider with a timeout bound and request
// deduplication, so concurrent remember() calls for identical text do not
// each pay for a separate model invocation.
type Embedder struct {
	provider Provider
	timeout  time.Duration
	group    singleflight.Group
}

// New wraps provider with the given per-call timeout. provider may be nil,
// in which case every Embed call reports the embedder as unavailable and
// the caller falls back to a flagged zero vector.
func New(provider Provider, timeout time.Duration) *Embedder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Embedder{provider: provider, timeout: timeout}
}

// Available reports whether an underlying provider is configured.
func (e *Embedder) Available() bool {
	return e != nil && e.provider != nil
}

// Dim returns the provider's embedding dimension, or 0 if unavailable.
func (e *Embedder) Dim() int {
	if !e.Available() {
		return 0
	}
	return e.provider.Dim()
}

// Embed produces a vector for text, bounded by the configured timeout.
// A nil provider or a provider error is reported as a KindEmbedder
// *apperr.Error; callers (core/engine Remember) are expected to fall back
// to a zero vector and flag the node for regenerate_embeddings rather than
// fail the whole operation.
func (e *Embedder) Embed(ctx context.Context, text string) (vector.Vector, error) {
	if !e.Available() {
		return nil, apperr.New(apperr.KindEmbedder, "no embedding provider configured")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	v, err, _ := e.group.Do(text, func() (interface{}, error) {
		return e.provider.Embed(ctx, text)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEmbedder, err, "embed failed")
	}
	return v.(vector.Vector), nil
}
