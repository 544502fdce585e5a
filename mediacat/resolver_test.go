package mediacat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveClassifierLabelMapsToCategory(t *testing.T) {
	r := NewResolver(DefaultConfig())
	classify := func([]byte) (string, float64, error) { return "tabby", 0.92, nil }

	assert.Equal(t, "animals", r.Resolve([]byte("img"), "whatever.jpg", classify))
}

func TestResolveClassifierVocabularyLabel(t *testing.T) {
	r := NewResolver(DefaultConfig())
	classify := func([]byte) (string, float64, error) { return "Food", 0.80, nil }

	assert.Equal(t, "food", r.Resolve(nil, "x.jpg", classify))
}

func TestResolveLowConfidenceFallsBackToFilename(t *testing.T) {
	r := NewResolver(DefaultConfig())
	classify := func([]byte) (string, float64, error) { return "tabby", 0.10, nil }

	assert.Equal(t, "nature", r.Resolve(nil, "beach_nature_sunset.jpg", classify))
}

func TestResolveClassifierErrorFallsBackToFilename(t *testing.T) {
	r := NewResolver(DefaultConfig())
	classify := func([]byte) (string, float64, error) { return "", 0, errors.New("model unavailable") }

	assert.Equal(t, "sports", r.Resolve(nil, "sports_final.png", classify))
}

func TestResolveNilClassifierUsesFilename(t *testing.T) {
	r := NewResolver(DefaultConfig())
	assert.Equal(t, "travel", r.Resolve(nil, "My_Travel_Pics.jpg", nil))
}

func TestResolveUnknownLabelUnmatchedFilename(t *testing.T) {
	r := NewResolver(DefaultConfig())
	classify := func([]byte) (string, float64, error) { return "completely novel thing", 0.99, nil }

	assert.Equal(t, Uncategorized, r.Resolve(nil, "img_0001.jpg", classify))
}

func TestResolveUncategorizedTerminal(t *testing.T) {
	r := NewResolver(DefaultConfig())
	assert.Equal(t, Uncategorized, r.Resolve(nil, "img_0001.jpg", nil))
}

func TestResolveConfidenceFloorBoundary(t *testing.T) {
	cfg := DefaultConfig()
	r := NewResolver(cfg)

	atFloor := func([]byte) (string, float64, error) { return "tabby", cfg.ConfidenceFloor, nil }
	assert.Equal(t, "animals", r.Resolve(nil, "x.jpg", atFloor))

	belowFloor := func([]byte) (string, float64, error) { return "tabby", cfg.ConfidenceFloor - 0.01, nil }
	assert.Equal(t, Uncategorized, r.Resolve(nil, "x.jpg", belowFloor))
}

func TestDefaultConfigVocabulary(t *testing.T) {
	cfg := DefaultConfig()
	assert.Len(t, cfg.Vocabulary, 15)
	assert.Contains(t, cfg.Vocabulary, "other")
	assert.NotContains(t, cfg.Vocabulary, Uncategorized)
}
