package types

import (
	"encoding/json"
	"strings"
	"time"
)

// NSFWPolicy controls how a rule treats NSFW content (§3, §4.6).
type NSFWPolicy string

const (
	NSFWBlock           NSFWPolicy = "block"
	NSFWAllow           NSFWPolicy = "allow"
	NSFWSeparateChannel NSFWPolicy = "separate_channel"
)

// TagsMatchMode controls whether match_conditions.tags requires any or all
// of the listed tags to be present (§3).
type TagsMatchMode string

const (
	TagsMatchAny TagsMatchMode = "any"
	TagsMatchAll TagsMatchMode = "all"
)

// MatchConditions is the typed projection of DistributionRule.match_conditions.
type MatchConditions struct {
	Platform      string        `json:"platform,omitempty"` // "" or "*" = wildcard
	Tags          []string      `json:"tags,omitempty"`
	TagsExclude   []string      `json:"tags_exclude,omitempty"`
	TagsMatchMode TagsMatchMode `json:"tags_match_mode,omitempty"`
	IsNSFW        *bool         `json:"is_nsfw,omitempty"`
}

// ParseMatchConditions projects the opaque JSON column into MatchConditions.
func ParseMatchConditions(raw JSON) (*MatchConditions, error) {
	mc := &MatchConditions{TagsMatchMode: TagsMatchAny}
	if len(raw) == 0 {
		return mc, nil
	}
	if err := json.Unmarshal(raw, mc); err != nil {
		return nil, err
	}
	if mc.TagsMatchMode == "" {
		mc.TagsMatchMode = TagsMatchAny
	}
	return mc, nil
}

// Matches evaluates the rule's match_conditions against a content (§4.6 step 2).
func (mc *MatchConditions) Matches(c *Content) bool {
	if mc.Platform != "" && mc.Platform != "*" && !strings.EqualFold(mc.Platform, c.Platform) {
		return false
	}
	if mc.IsNSFW != nil && *mc.IsNSFW != c.IsNSFW {
		return false
	}
	if len(mc.TagsExclude) > 0 && intersects(mc.TagsExclude, c.Tags) {
		return false
	}
	if len(mc.Tags) == 0 {
		return true
	}
	switch mc.TagsMatchMode {
	case TagsMatchAll:
		return containsAll(c.Tags, mc.Tags)
	default:
		return intersects(mc.Tags, c.Tags)
	}
}

func intersects(a []string, b StringSlice) bool {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[strings.ToLower(v)] = struct{}{}
	}
	for _, v := range a {
		if _, ok := set[strings.ToLower(v)]; ok {
			return true
		}
	}
	return false
}

func containsAll(have StringSlice, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, v := range have {
		set[strings.ToLower(v)] = struct{}{}
	}
	for _, v := range want {
		if _, ok := set[strings.ToLower(v)]; !ok {
			return false
		}
	}
	return true
}

// AutoApproveConditions is the typed projection of auto_approve_conditions.
// Kept intentionally small: a subset of MatchConditions plus a score floor
// reserved for future heuristics (the spec leaves the exact shape open; we
// reuse the match-condition grammar so the two JSON blobs share one parser).
type AutoApproveConditions struct {
	MatchConditions
}

func ParseAutoApproveConditions(raw JSON) (*AutoApproveConditions, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ac AutoApproveConditions
	if err := json.Unmarshal(raw, &ac); err != nil {
		return nil, err
	}
	return &ac, nil
}

// AuthorMode controls how much author information the renderer shows (§4.8).
type AuthorMode string

const (
	AuthorModeNone AuthorMode = "none"
	AuthorModeName AuthorMode = "name"
	AuthorModeFull AuthorMode = "full"
)

// ContentMode controls how much of the body the renderer shows (§4.8).
type ContentMode string

const (
	ContentModeHidden  ContentMode = "hidden"
	ContentModeSummary ContentMode = "summary"
	ContentModeFull    ContentMode = "full"
)

// MediaMode controls whether/which media accompanies the push (§4.8).
type MediaMode string

const (
	MediaModeNone MediaMode = "none"
	MediaModeAuto MediaMode = "auto"
	MediaModeAll  MediaMode = "all"
)

// LinkMode controls which URL form the renderer emits (§4.8).
type LinkMode string

const (
	LinkModeNone     LinkMode = "none"
	LinkModeClean    LinkMode = "clean"
	LinkModeOriginal LinkMode = "original"
)

// RenderConfig is the canonical flat render-config keyset (§4.8).
type RenderConfig struct {
	ShowPlatformID bool        `json:"show_platform_id"`
	ShowTitle      bool        `json:"show_title"`
	ShowTags       bool        `json:"show_tags"`
	AuthorMode     AuthorMode  `json:"author_mode"`
	ContentMode    ContentMode `json:"content_mode"`
	MediaMode      MediaMode   `json:"media_mode"`
	LinkMode       LinkMode    `json:"link_mode"`
	HeaderText     string      `json:"header_text"`
	FooterText     string      `json:"footer_text"`
}

// DefaultRenderConfig is the system default used as the base of the
// target/rule/system merge chain (§3: "Effective render config").
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		ShowPlatformID: false,
		ShowTitle:      true,
		ShowTags:       true,
		AuthorMode:     AuthorModeName,
		ContentMode:    ContentModeSummary,
		MediaMode:      MediaModeAuto,
		LinkMode:       LinkModeClean,
	}
}

// Merge overlays non-zero fields of override onto the receiver, implementing
// the target-override > rule > system-default precedence chain.
func (rc RenderConfig) Merge(override *RenderConfig) RenderConfig {
	if override == nil {
		return rc
	}
	out := rc
	if override.AuthorMode != "" {
		out.AuthorMode = override.AuthorMode
	}
	if override.ContentMode != "" {
		out.ContentMode = override.ContentMode
	}
	if override.MediaMode != "" {
		out.MediaMode = override.MediaMode
	}
	if override.LinkMode != "" {
		out.LinkMode = override.LinkMode
	}
	if override.HeaderText != "" {
		out.HeaderText = override.HeaderText
	}
	if override.FooterText != "" {
		out.FooterText = override.FooterText
	}
	// booleans have no "unset" sentinel in JSON; callers that need to
	// override show_* to false must set every bool field explicitly via
	// the legacy-nested normalizer (renderconfig.go), which always
	// produces a fully-populated RenderConfig rather than a partial one.
	out.ShowPlatformID = override.ShowPlatformID || out.ShowPlatformID
	out.ShowTitle = override.ShowTitle || out.ShowTitle
	out.ShowTags = override.ShowTags || out.ShowTags
	return out
}

// DistributionRule is matching + default rendering config (§3).
type DistributionRule struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Enabled     bool   `gorm:"not null;default:true" json:"enabled"`
	Priority    int    `gorm:"not null;default:0;index" json:"priority"` // higher first

	MatchConditions       JSON `gorm:"type:jsonb" json:"match_conditions"`
	NSFWPolicy            NSFWPolicy `gorm:"size:32;not null;default:block" json:"nsfw_policy"`
	ApprovalRequired      bool `gorm:"not null;default:false" json:"approval_required"`
	AutoApproveConditions JSON `gorm:"type:jsonb" json:"auto_approve_conditions,omitempty"`

	RateLimit  int `gorm:"not null;default:0" json:"rate_limit"`  // 0 = unlimited
	TimeWindow int `gorm:"not null;default:0" json:"time_window"` // seconds

	RenderConfig JSON `gorm:"type:jsonb" json:"render_config"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Targets []DistributionTarget `gorm:"constraint:OnDelete:CASCADE" json:"targets,omitempty"`
}

// DistributionTarget is a rule -> chat association with overrides (§3).
type DistributionTarget struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	RuleID   int64 `gorm:"not null;uniqueIndex:uniq_rule_chat" json:"rule_id"`
	BotChatID int64 `gorm:"not null;uniqueIndex:uniq_rule_chat" json:"bot_chat_id"`

	Enabled       bool `gorm:"not null;default:true" json:"enabled"`
	MergeForward  bool `gorm:"not null;default:false" json:"merge_forward"`
	UseAuthorName bool `gorm:"not null;default:true" json:"use_author_name"`
	Summary       string `gorm:"type:text" json:"summary,omitempty"`

	RenderConfigOverride JSON `gorm:"type:jsonb" json:"render_config_override,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
