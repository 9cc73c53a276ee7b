package types

// RenderPlaceholder represents a placeholder usable inside a render_config template
// (header_text / footer_text), e.g. "{{title}}".
type RenderPlaceholder struct {
	// Name is the placeholder name (without braces), e.g., "title"
	Name string `json:"name"`
	// Label is a short human label for the placeholder
	Label string `json:"label"`
	// Description explains what this placeholder expands to
	Description string `json:"description"`
}

// All placeholders supported by the push-worker renderer (§4.8). Unknown
// placeholders in a template render as empty per the render contract.
var (
	PlaceholderTitle = RenderPlaceholder{
		Name:        "title",
		Label:       "Title",
		Description: "Content title",
	}
	PlaceholderAuthor = RenderPlaceholder{
		Name:        "author",
		Label:       "Author",
		Description: "Author display name, honoring target.use_author_name",
	}
	PlaceholderURL = RenderPlaceholder{
		Name:        "url",
		Label:       "URL",
		Description: "Clean or original URL depending on link_mode",
	}
	PlaceholderDate = RenderPlaceholder{
		Name:        "date",
		Label:       "Date",
		Description: "Content created_at (no published date is stored), formatted 2006-01-02 15:04",
	}
	PlaceholderTags = RenderPlaceholder{
		Name:        "tags",
		Label:       "Tags",
		Description: "Comma-joined content tags",
	}
	PlaceholderSummary = RenderPlaceholder{
		Name:        "summary",
		Label:       "Summary",
		Description: "Content description, truncated per content_mode",
	}
)

// AllRenderPlaceholders returns every placeholder the renderer understands.
func AllRenderPlaceholders() []RenderPlaceholder {
	return []RenderPlaceholder{
		PlaceholderTitle,
		PlaceholderAuthor,
		PlaceholderURL,
		PlaceholderDate,
		PlaceholderTags,
		PlaceholderSummary,
	}
}

// RenderPlaceholderNames returns the bare placeholder names, used to build
// the {{name}} -> value substitution map in the renderer.
func RenderPlaceholderNames() []string {
	all := AllRenderPlaceholders()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = p.Name
	}
	return names
}
