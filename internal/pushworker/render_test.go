package pushworker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultstream/vaultstream/internal/types"
)

func TestRender_DefaultConfig(t *testing.T) {
	rd := NewRenderer()
	rule := &types.DistributionRule{}
	target := &types.DistributionTarget{UseAuthorName: true}
	c := &types.Content{
		Title:       "A great clip",
		Description: "A longer description of the clip.",
		AuthorName:  "someone",
		CleanURL:    "https://example.com/clip/1",
		Tags:        types.StringSlice{"funny", "clip"},
	}

	msg, err := rd.Render(rule, target, c)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "A great clip")
	assert.Contains(t, msg.Text, "someone")
	assert.Contains(t, msg.Text, "https://example.com/clip/1")
	assert.Contains(t, msg.Text, "funny, clip")
}

func TestRender_ContentModeHiddenOmitsSummary(t *testing.T) {
	rd := NewRenderer()
	rule := &types.DistributionRule{
		RenderConfig: mustJSON(t, map[string]interface{}{"content_mode": "hidden"}),
	}
	target := &types.DistributionTarget{}
	c := &types.Content{Title: "T", Description: "should not appear"}

	msg, err := rd.Render(rule, target, c)
	require.NoError(t, err)
	assert.NotContains(t, msg.Text, "should not appear")
}

func TestRender_UnknownPlaceholderRendersEmpty(t *testing.T) {
	rd := NewRenderer()
	rule := &types.DistributionRule{
		RenderConfig: mustJSON(t, map[string]interface{}{"header_text": "{{title}} / {{not_a_real_placeholder}}"}),
	}
	target := &types.DistributionTarget{}
	c := &types.Content{Title: "Hello"}

	msg, err := rd.Render(rule, target, c)
	require.NoError(t, err)
	assert.Contains(t, msg.Text, "Hello / ")
	assert.NotContains(t, msg.Text, "not_a_real_placeholder")
}

func TestRender_MediaModeAutoTakesFirstOnly(t *testing.T) {
	rd := NewRenderer()
	rule := &types.DistributionRule{}
	target := &types.DistributionTarget{}
	c := &types.Content{
		Title:     "T",
		MediaURLs: types.StringSlice{"https://a/1.jpg", "https://a/2.jpg"},
	}

	msg, err := rd.Render(rule, target, c)
	require.NoError(t, err)
	assert.Len(t, msg.MediaURLs, 1)
}

func mustJSON(t *testing.T, m map[string]interface{}) types.JSON {
	t.Helper()
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return types.JSON(b)
}
