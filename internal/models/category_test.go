package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetCategories(t *testing.T) {
	presets := PresetCategories()
	require.Len(t, presets, 8)

	assert.Equal(t, "食費", presets[0].Name)
	assert.Equal(t, "fork.knife", presets[0].IconName)
	assert.Equal(t, "その他", presets[7].Name)
	for i, c := range presets {
		assert.Equal(t, i, c.DisplayOrder)
	}

	// IDs are stable across calls so separate processes agree on them.
	again := PresetCategories()
	assert.Equal(t, presets[3].ID, again[3].ID)
	assert.NotEqual(t, presets[0].ID, presets[1].ID)

	assert.Equal(t, len(presets), len(PresetCategoryNames()))
}

func TestFindPreset(t *testing.T) {
	c, ok := FindPreset("交通費")
	assert.True(t, ok)
	assert.Equal(t, "car.fill", c.IconName)

	_, ok = FindPreset("Renamed Category")
	assert.False(t, ok)
}
