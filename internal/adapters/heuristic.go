package adapters

import "github.com/vaultstream/vaultstream/internal/types"

// InferLayoutType applies the §4.4 registry fallback heuristic: a platform
// adapter that can't state its layout_type outright derives one from the
// shape of what it extracted before falling back to an LLM hint or
// "article" (spec.md: "video_url -> video; audio_url -> audio; images >= 2
// && body < 500 chars -> gallery; body > 1000 chars -> article").
func InferLayoutType(hasVideo, hasAudio bool, mediaCount int, bodyLen int, llmHint types.LayoutType) types.LayoutType {
	switch {
	case hasVideo:
		return types.LayoutVideo
	case hasAudio:
		return types.LayoutAudio
	case mediaCount >= 2 && bodyLen < 500:
		return types.LayoutGallery
	case bodyLen > 1000:
		return types.LayoutArticle
	case llmHint.Valid():
		return llmHint
	default:
		return types.LayoutArticle
	}
}
