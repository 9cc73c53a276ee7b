package distqueue

import (
	"github.com/go-viper/mapstructure/v2"

	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/types"
)

// legacyRenderConfig mirrors the nested {structure:{display:{...},
// formatting:{...}}} shape some older rule exports still carry. Rules
// created before §4.8's flat keyset was settled on are not migrated in
// place; NormalizeRenderConfig accepts either shape at read time.
type legacyRenderConfig struct {
	Structure struct {
		Display struct {
			PlatformID bool `mapstructure:"platform_id"`
			Title      bool `mapstructure:"title"`
			Tags       bool `mapstructure:"tags"`
		} `mapstructure:"display"`
		Formatting struct {
			Author  string `mapstructure:"author"`
			Content string `mapstructure:"content"`
			Media   string `mapstructure:"media"`
			Link    string `mapstructure:"link"`
		} `mapstructure:"formatting"`
		Header string `mapstructure:"header"`
		Footer string `mapstructure:"footer"`
	} `mapstructure:"structure"`
}

// NormalizeRenderConfig decodes raw into the canonical flat types.RenderConfig,
// accepting both the current flat keyset and the legacy nested "structure"
// shape. Unknown fields are ignored rather than rejected: this runs on
// stored rule rows, not on untrusted API input (the API boundary validates
// against the flat schema via internal/validate).
func NormalizeRenderConfig(raw map[string]interface{}) (types.RenderConfig, error) {
	if _, nested := raw["structure"]; nested {
		var legacy legacyRenderConfig
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &legacy,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return types.RenderConfig{}, apperrors.Wrap(apperrors.KindValidation, "building render config decoder", err)
		}
		if err := dec.Decode(raw); err != nil {
			return types.RenderConfig{}, apperrors.Wrap(apperrors.KindValidation, "decoding legacy render config", err)
		}
		return legacy.toFlat(), nil
	}

	var flat types.RenderConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &flat,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return types.RenderConfig{}, apperrors.Wrap(apperrors.KindValidation, "building render config decoder", err)
	}
	if err := dec.Decode(raw); err != nil {
		return types.RenderConfig{}, apperrors.Wrap(apperrors.KindValidation, "decoding render config", err)
	}
	return flat, nil
}

func (l legacyRenderConfig) toFlat() types.RenderConfig {
	rc := types.DefaultRenderConfig()
	rc.ShowPlatformID = l.Structure.Display.PlatformID
	rc.ShowTitle = l.Structure.Display.Title
	rc.ShowTags = l.Structure.Display.Tags
	rc.HeaderText = l.Structure.Header
	rc.FooterText = l.Structure.Footer
	if v := types.AuthorMode(l.Structure.Formatting.Author); v != "" {
		rc.AuthorMode = v
	}
	if v := types.ContentMode(l.Structure.Formatting.Content); v != "" {
		rc.ContentMode = v
	}
	if v := types.MediaMode(l.Structure.Formatting.Media); v != "" {
		rc.MediaMode = v
	}
	if v := types.LinkMode(l.Structure.Formatting.Link); v != "" {
		rc.LinkMode = v
	}
	return rc
}
