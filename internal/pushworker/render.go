package pushworker

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/vaultstream/vaultstream/internal/distqueue"
	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

const maxSummaryRunes = 480

var unknownPlaceholder = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// Renderer turns a (content, rule, target) triplet into the RenderedMessage
// a PlatformPusher sends, applying the §3 effective-render-config merge
// chain and the §4.8 placeholder grammar.
type Renderer struct{}

// NewRenderer builds the template-placeholder renderer.
func NewRenderer() *Renderer { return &Renderer{} }

// Render implements §4.8's render step.
func (rd *Renderer) Render(rule *types.DistributionRule, target *types.DistributionTarget, c *types.Content) (interfaces.RenderedMessage, error) {
	var ruleOverride *types.RenderConfig
	if len(rule.RenderConfig) > 0 {
		parsed, err := parseRenderConfig(rule.RenderConfig)
		if err != nil {
			return interfaces.RenderedMessage{}, err
		}
		ruleOverride = parsed
	}
	effective := types.DefaultRenderConfig().Merge(ruleOverride)

	if len(target.RenderConfigOverride) > 0 {
		parsed, err := parseRenderConfig(target.RenderConfigOverride)
		if err != nil {
			return interfaces.RenderedMessage{}, err
		}
		effective = effective.Merge(parsed)
	}

	values := rd.placeholderValues(effective, target, c)
	body := applyTemplate(effective.HeaderText, values) + rd.body(effective, values) + applyTemplate(effective.FooterText, values)

	msg := interfaces.RenderedMessage{
		Text:      strings.TrimSpace(body),
		MediaMode: effective.MediaMode,
	}
	if effective.MediaMode != types.MediaModeNone && len(c.MediaURLs) > 0 {
		if effective.MediaMode == types.MediaModeAuto {
			msg.MediaURLs = c.MediaURLs[:1]
		} else {
			msg.MediaURLs = c.MediaURLs
		}
	}
	return msg, nil
}

func (rd *Renderer) body(cfg types.RenderConfig, values map[string]string) string {
	var b strings.Builder
	if cfg.ShowTitle && values["title"] != "" {
		b.WriteString(values["title"])
		b.WriteString("\n\n")
	}
	if cfg.AuthorMode != types.AuthorModeNone && values["author"] != "" {
		b.WriteString(values["author"])
		b.WriteString("\n")
	}
	if cfg.ContentMode != types.ContentModeHidden && values["summary"] != "" {
		b.WriteString(values["summary"])
		b.WriteString("\n\n")
	}
	if cfg.ShowTags && values["tags"] != "" {
		b.WriteString(values["tags"])
		b.WriteString("\n")
	}
	if cfg.LinkMode != types.LinkModeNone && values["url"] != "" {
		b.WriteString(values["url"])
		b.WriteString("\n")
	}
	if cfg.ShowPlatformID && values["platform_id"] != "" {
		b.WriteString(values["platform_id"])
		b.WriteString("\n")
	}
	return b.String()
}

func (rd *Renderer) placeholderValues(cfg types.RenderConfig, target *types.DistributionTarget, c *types.Content) map[string]string {
	values := map[string]string{
		"title": c.Title,
		"tags":  strings.Join(c.Tags, ", "),
	}

	switch cfg.AuthorMode {
	case types.AuthorModeFull:
		values["author"] = fmt.Sprintf("%s (%s)", c.AuthorName, c.AuthorID)
	case types.AuthorModeName:
		if target.UseAuthorName {
			values["author"] = c.AuthorName
		}
	}

	switch cfg.ContentMode {
	case types.ContentModeFull:
		values["summary"] = c.Description
	case types.ContentModeSummary:
		values["summary"] = truncateRunes(c.Description, maxSummaryRunes)
	}

	switch cfg.LinkMode {
	case types.LinkModeClean:
		values["url"] = firstNonEmpty(c.CleanURL, c.URL)
	case types.LinkModeOriginal:
		values["url"] = c.URL
	}

	values["platform_id"] = fmt.Sprintf("[%s/%s]", c.Platform, c.PlatformID)

	when := c.CreatedAt
	values["date"] = when.Format("2006-01-02 15:04")

	return values
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// applyTemplate substitutes {{name}} placeholders; any {{...}} left over
// (an unrecognized placeholder) renders as empty per §4.8's render contract.
func applyTemplate(tpl string, values map[string]string) string {
	if tpl == "" {
		return ""
	}
	out := tpl
	for _, name := range types.RenderPlaceholderNames() {
		out = strings.ReplaceAll(out, "{{"+name+"}}", values[name])
	}
	out = unknownPlaceholder.ReplaceAllString(out, "")
	return out + "\n"
}

// parseRenderConfig decodes a stored render_config/render_config_override
// column through distqueue.NormalizeRenderConfig so legacy-nested rows
// (SPEC_FULL §B "Nested→flat config normalization" row) merge
// the same way fresh flat rows do.
func parseRenderConfig(raw types.JSON) (*types.RenderConfig, error) {
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, apperrors.Wrap(apperrors.KindValidation, "decoding render config json", err)
	}
	rc, err := distqueue.NormalizeRenderConfig(generic)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}
