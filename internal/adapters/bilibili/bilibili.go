// Package bilibili is a URL-pattern adapter (C4): it recognizes bilibili.com
// video URLs and b23.tv short links (resolving the short link via an HTTP
// HEAD request per spec.md's registry routing rule), then normalizes the
// page's Open Graph metadata the same way the generic adapter does.
// Resolving the actual playable stream (bilibili's private, authenticated
// API) is out of scope per the Non-goals; only the page's public metadata
// is extracted.
package bilibili

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vaultstream/vaultstream/internal/adapters"
	"github.com/vaultstream/vaultstream/internal/types"
)

var (
	videoURLPattern = regexp.MustCompile(`(?i)bilibili\.com/video/(BV[0-9A-Za-z]+|av\d+)`)
	shortLinkHost   = "b23.tv"
)

// Adapter normalizes bilibili.com video pages.
type Adapter struct {
	httpClient *http.Client
}

// New builds the bilibili adapter.
func New() *Adapter {
	return &Adapter{httpClient: &http.Client{Timeout: 15 * time.Second}}
}

func (a *Adapter) Name() string { return "bilibili" }

func (a *Adapter) Supports(rawURL string) bool {
	if videoURLPattern.MatchString(rawURL) {
		return true
	}
	return strings.Contains(rawURL, shortLinkHost)
}

func (a *Adapter) Parse(ctx context.Context, rawURL string) (*types.ParsedContent, error) {
	resolvedURL, err := a.resolveShortLink(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	match := videoURLPattern.FindStringSubmatch(resolvedURL)
	if match == nil {
		return nil, &types.AdapterError{Kind: types.AdapterErrValidation, Message: "url is not a recognizable bilibili video page"}
	}
	bvid := match[1]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolvedURL, nil)
	if err != nil {
		return nil, &types.AdapterError{Kind: types.AdapterErrValidation, Message: "building request", Cause: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; VaultStreamBot/1.0)")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &types.AdapterError{Kind: types.AdapterErrTransient, Message: "fetching bilibili page", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, &types.AdapterError{Kind: types.AdapterErrNotFound, Message: fmt.Sprintf("bilibili returned %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 500 {
		return nil, &types.AdapterError{Kind: types.AdapterErrTransient, Message: fmt.Sprintf("bilibili returned %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &types.AdapterError{Kind: types.AdapterErrValidation, Message: "parsing bilibili page", Cause: err}
	}

	title := metaOr(doc, "og:title", strings.TrimSpace(doc.Find("title").First().Text()))
	description := metaOr(doc, "og:description", "")
	cover := metaOr(doc, "og:image", "")
	author := metaOr(doc, "og:video:director", "")

	// The public page exposes only the cover thumbnail and uploader avatar
	// as discoverable media (the playable stream requires bilibili's
	// authenticated API, which is out of scope); two stills plus a short
	// description is exactly the registry's gallery heuristic input.
	media := []string{}
	if cover != "" {
		media = append(media, cover)
	}
	if avatar := metaOr(doc, "og:image:user_cover", ""); avatar != "" {
		media = append(media, avatar)
	}

	layout := adapters.InferLayoutType(false, false, len(media), len(description), types.LayoutGallery)

	return &types.ParsedContent{
		Platform:     a.Name(),
		PlatformID:   bvid,
		URL:          rawURL,
		CanonicalURL: fmt.Sprintf("https://www.bilibili.com/video/%s", bvid),
		CleanURL:     fmt.Sprintf("https://www.bilibili.com/video/%s", bvid),
		Title:        title,
		Description:  description,
		AuthorName:   author,
		CoverURL:     cover,
		MediaURLs:    media,
		LayoutType:   layout,
		ContentType:  "video",
	}, nil
}

// resolveShortLink follows a b23.tv redirect without downloading its body,
// per spec.md's "optional short-link HEAD resolution" routing rule.
func (a *Adapter) resolveShortLink(ctx context.Context, rawURL string) (string, error) {
	if !strings.Contains(rawURL, shortLinkHost) {
		return rawURL, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", &types.AdapterError{Kind: types.AdapterErrValidation, Message: "building HEAD request", Cause: err}
	}
	client := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &types.AdapterError{Kind: types.AdapterErrTransient, Message: "resolving b23.tv short link", Cause: err}
	}
	defer resp.Body.Close()
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", &types.AdapterError{Kind: types.AdapterErrValidation, Message: "b23.tv short link did not redirect"}
	}
	return loc, nil
}

func metaOr(doc *goquery.Document, property, fallback string) string {
	v, ok := doc.Find(fmt.Sprintf(`meta[property="%s"]`, property)).First().Attr("content")
	if ok && v != "" {
		return v
	}
	return fallback
}
