package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSON is an opaque JSON-at-rest column type (§9 design note: dynamic JSON
// fields stay opaque at the storage edge and get projected into typed
// structs inside each component that needs them).
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[:0], v...)
		return nil
	case string:
		*j = JSON(v)
		return nil
	default:
		return errors.New("types.JSON: unsupported Scan source")
	}
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}

// StringSlice is a simple JSON-encoded []string column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("types.StringSlice: unsupported Scan source")
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

// LayoutType is the effective presentation layout for a piece of content (§3).
type LayoutType string

const (
	LayoutArticle LayoutType = "article"
	LayoutVideo   LayoutType = "video"
	LayoutGallery LayoutType = "gallery"
	LayoutAudio   LayoutType = "audio"
	LayoutLink    LayoutType = "link"
)

func (l LayoutType) Valid() bool {
	switch l {
	case LayoutArticle, LayoutVideo, LayoutGallery, LayoutAudio, LayoutLink:
		return true
	default:
		return false
	}
}

// ContentStatus is the lifecycle status of a Content row (§3).
type ContentStatus string

const (
	ContentStatusUnprocessed ContentStatus = "unprocessed"
	ContentStatusProcessing  ContentStatus = "processing"
	ContentStatusPulled      ContentStatus = "pulled"
	ContentStatusFailed      ContentStatus = "failed"
)

// ReviewStatus is the approval status of a Content row (§3).
type ReviewStatus string

const (
	ReviewPending      ReviewStatus = "pending"
	ReviewApproved     ReviewStatus = "approved"
	ReviewRejected     ReviewStatus = "rejected"
	ReviewAutoApproved ReviewStatus = "auto_approved"
)

// ErrorKind mirrors the §7 taxonomy onto a persisted, API-observable field
// (SPEC_FULL §C: "Structured last_error_type enum").
type ErrorKind string

const (
	ErrorKindNone       ErrorKind = ""
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindAuth       ErrorKind = "auth"
	ErrorKindNotFound   ErrorKind = "not_found"
	ErrorKindTransient  ErrorKind = "transient"
)

// Content is the archived item (§3).
type Content struct {
	ID         int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Platform   string `gorm:"size:64;not null;uniqueIndex:uniq_platform_canonical_url" json:"platform"`
	PlatformID string `gorm:"size:255" json:"platform_id"`

	URL          string `gorm:"size:2048;not null" json:"url"`
	CanonicalURL string `gorm:"size:2048;not null;uniqueIndex:uniq_platform_canonical_url" json:"canonical_url"`
	CleanURL     string `gorm:"size:2048" json:"clean_url"`

	Title       string `gorm:"size:1024" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	AuthorName      string `json:"author_name"`
	AuthorID        string `json:"author_id"`
	AuthorAvatarURL string `json:"author_avatar_url"`
	AuthorURL       string `json:"author_url"`

	CoverURL   string `json:"cover_url"`
	CoverColor string `gorm:"size:16" json:"cover_color"`

	MediaURLs StringSlice `gorm:"type:jsonb" json:"media_urls"`
	Tags      StringSlice `gorm:"type:jsonb" json:"tags"`
	IsNSFW    bool        `json:"is_nsfw"`

	LayoutType         LayoutType  `gorm:"size:16" json:"layout_type"`
	LayoutTypeOverride *LayoutType `gorm:"size:16" json:"layout_type_override,omitempty"`

	ContentType string `gorm:"size:64" json:"content_type"`
	ExtraStats  JSON   `gorm:"type:jsonb" json:"extra_stats,omitempty"`
	RawMetadata JSON   `gorm:"type:jsonb" json:"raw_metadata,omitempty"`

	Status       ContentStatus `gorm:"size:16;not null;default:unprocessed" json:"status"`
	ReviewStatus ReviewStatus  `gorm:"size:16;not null;default:pending" json:"review_status"`

	FailureCount  int        `gorm:"not null;default:0" json:"failure_count"`
	LastError     string     `gorm:"type:text" json:"last_error,omitempty"`
	LastErrorType ErrorKind  `gorm:"size:16" json:"last_error_type,omitempty"`
	LastErrorAt   *time.Time `json:"last_error_at,omitempty"`

	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy   string     `json:"reviewed_by,omitempty"`
	ReviewedNote string     `gorm:"type:text" json:"reviewed_note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sources       []ContentSource `gorm:"constraint:OnDelete:CASCADE" json:"sources,omitempty"`
	PushedRecords []PushedRecord  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// EffectiveLayoutType implements the §3 invariant:
// effective = override ?: layout_type ?: heuristic fallback("article").
func (c *Content) EffectiveLayoutType() LayoutType {
	if c.LayoutTypeOverride != nil && c.LayoutTypeOverride.Valid() {
		return *c.LayoutTypeOverride
	}
	if c.LayoutType.Valid() {
		return c.LayoutType
	}
	return LayoutArticle
}

// ContentSource records one user submission of a canonical URL (§3).
type ContentSource struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ContentID int64  `gorm:"not null;index" json:"content_id"`
	URL       string `gorm:"size:2048" json:"url"`
	Note      string `gorm:"type:text" json:"note,omitempty"`
	SubmittedBy string `json:"submitted_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
