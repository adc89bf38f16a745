package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/perl-lsp-core/config"
)

func TestDefaultServiceConfigIsSane(t *testing.T) {
	cfg := config.DefaultServiceConfig()
	assert.Greater(t, cfg.CacheMaxSize, 0)
	assert.Greater(t, cfg.CompletionMaxItems, 0)
	assert.GreaterOrEqual(t, cfg.StructuralSimilarityThreshold, 0.0)
	assert.LessOrEqual(t, cfg.StructuralSimilarityThreshold, 1.0)
}

func TestLoadOverlayMergesPartialDocument(t *testing.T) {
	base := config.DefaultServiceConfig()
	merged, err := config.LoadOverlay(base, []byte(`{"cacheMaxSize": 5000}`))
	require.NoError(t, err)
	assert.Equal(t, 5000, merged.CacheMaxSize)
	assert.Equal(t, base.CompletionMaxItems, merged.CompletionMaxItems)
}

func TestLoadOverlayRejectsUnknownField(t *testing.T) {
	base := config.DefaultServiceConfig()
	_, err := config.LoadOverlay(base, []byte(`{"bogusField": true}`))
	assert.Error(t, err)
}

func TestLoadOverlayRejectsOutOfRangeValue(t *testing.T) {
	base := config.DefaultServiceConfig()
	_, err := config.LoadOverlay(base, []byte(`{"structuralSimilarityThreshold": 5.0}`))
	assert.Error(t, err)
}

func TestLoadOverlayRejectsInvalidJSON(t *testing.T) {
	base := config.DefaultServiceConfig()
	_, err := config.LoadOverlay(base, []byte(`not json`))
	assert.Error(t, err)
}
