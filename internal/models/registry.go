// Package models holds the static model catalog. Models are not loaded or
// unloaded locally, so the catalog is process-wide, read-only state built
// once at startup from configuration.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/n0madic/go-ollama-claude/internal/types"
)

// psExpiry is the expiry window reported by /api/ps. API-backed models are
// always "loaded", so the horizon is effectively forever.
const psExpiry = 365 * 24 * time.Hour

// Registry is the static model catalog.
type Registry struct {
	ids   []string
	known map[string]struct{}
}

// NewRegistry builds a catalog from the configured model identifiers.
func NewRegistry(ids []string) *Registry {
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	return &Registry{ids: ids, known: known}
}

// Lookup returns the catalog metadata for a model identifier.
func (r *Registry) Lookup(model string) (types.ModelDetails, bool) {
	if _, ok := r.known[model]; !ok {
		return types.ModelDetails{}, false
	}
	return details(model), true
}

// Hint lists the available model identifiers for error messages.
func (r *Registry) Hint() string {
	return strings.Join(r.ids, ", ")
}

// Tags returns the /api/tags model list.
func (r *Registry) Tags() types.ModelList {
	now := time.Now().UTC().Format(time.RFC3339)
	entries := make([]types.ModelEntry, 0, len(r.ids))
	for _, id := range r.ids {
		entries = append(entries, types.ModelEntry{
			Name:       id,
			Model:      id,
			ModifiedAt: now,
			Digest:     Digest(id),
			Details:    details(id),
		})
	}
	return types.ModelList{Models: entries}
}

// PS returns the /api/ps list. Every catalog model is reported as loaded
// with a far-future expiry.
func (r *Registry) PS() types.LoadedModelList {
	expires := time.Now().UTC().Add(psExpiry).Format(time.RFC3339)
	entries := make([]types.LoadedModelEntry, 0, len(r.ids))
	for _, id := range r.ids {
		entries = append(entries, types.LoadedModelEntry{
			Name:      id,
			Model:     id,
			Digest:    Digest(id),
			Details:   details(id),
			ExpiresAt: expires,
		})
	}
	return types.LoadedModelList{Models: entries}
}

// Show returns the /api/show response for one model.
func (r *Registry) Show(model string) (types.ShowResponse, bool) {
	if _, ok := r.known[model]; !ok {
		return types.ShowResponse{}, false
	}
	return types.ShowResponse{
		Details:      details(model),
		ModelInfo:    map[string]any{"general.basename": model},
		Capabilities: []string{"completion", "chat"},
	}, true
}

// Digest generates a stable digest for a model identifier.
func Digest(model string) string {
	sum := sha256.Sum256([]byte(model))
	return hex.EncodeToString(sum[:])
}

// details classifies a model into a family and parameter-size class by
// name substring, mirroring how the catalog presents Claude model tiers.
func details(model string) types.ModelDetails {
	family, size := "claude", "unknown"
	switch {
	case strings.Contains(model, "opus"):
		family, size = "claude-opus", "large"
	case strings.Contains(model, "sonnet"):
		family, size = "claude-sonnet", "medium"
	case strings.Contains(model, "haiku"):
		family, size = "claude-haiku", "small"
	}
	return types.ModelDetails{
		Format:            "claude",
		Family:            family,
		Families:          []string{family},
		ParameterSize:     size,
		QuantizationLevel: "none",
	}
}
