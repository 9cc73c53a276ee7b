// Package generic is the fallback adapter (C4): it fetches any http(s) URL,
// strips boilerplate with goquery, and optionally asks an LLM to summarize
// the body. The LLM gives no layout_type hint: when the markup heuristics do
// not decide the layout, it falls back to article.
package generic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/vaultstream/vaultstream/internal/adapters"
	"github.com/vaultstream/vaultstream/internal/llm"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/utils"
)

// Adapter is the generic http(s) fallback; it Supports every http(s) URL, so
// it must be registered last in the adapter registry.
type Adapter struct {
	httpClient *http.Client
	llmClient  *llm.Client
}

// New builds the generic adapter. llmClient may be nil, in which case
// Summarize is skipped and the raw scraped fields are used.
func New(llmClient *llm.Client) *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		llmClient:  llmClient,
	}
}

func (a *Adapter) Name() string { return "generic" }

func (a *Adapter) Supports(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

func (a *Adapter) Parse(ctx context.Context, rawURL string) (*types.ParsedContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.AdapterError{Kind: types.AdapterErrValidation, Message: "building request", Cause: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; VaultStreamBot/1.0)")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, &types.AdapterError{Kind: types.AdapterErrTransient, Message: "fetching url", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return nil, &types.AdapterError{Kind: types.AdapterErrNotFound, Message: fmt.Sprintf("url returned %d", resp.StatusCode)}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &types.AdapterError{Kind: types.AdapterErrAuth, Message: fmt.Sprintf("url returned %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, &types.AdapterError{Kind: types.AdapterErrTransient, Message: fmt.Sprintf("url returned %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return nil, &types.AdapterError{Kind: types.AdapterErrValidation, Message: fmt.Sprintf("url returned %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &types.AdapterError{Kind: types.AdapterErrValidation, Message: "parsing html", Cause: err}
	}

	videoURL := metaOr(doc, "og:video", "")
	audioURL := metaOr(doc, "og:audio", "")
	media := collectImages(doc)

	pc := &types.ParsedContent{
		Platform:     a.Name(),
		URL:          rawURL,
		CanonicalURL: canonicalURL(doc, rawURL),
		Title:        utils.SanitizeForDisplay(metaOr(doc, "og:title", strings.TrimSpace(doc.Find("title").First().Text()))),
		Description:  utils.SanitizeForDisplay(metaOr(doc, "og:description", metaName(doc, "description"))),
		CoverURL:     metaOr(doc, "og:image", ""),
		AuthorName:   metaOr(doc, "og:article:author", metaName(doc, "author")),
		MediaURLs:    media,
		Tags:         metaTags(doc),
		ContentType:  resp.Header.Get("Content-Type"),
	}

	body := extractBody(doc)
	llmHint := types.LayoutArticle
	if a.llmClient != nil && body != "" {
		if summary, err := a.llmClient.Summarize(ctx, pc.Title, body); err == nil && summary != "" {
			pc.Description = summary
		}
	}
	if pc.Description == "" {
		pc.Description = truncate(body, 500)
	}

	pc.LayoutType = adapters.InferLayoutType(videoURL != "", audioURL != "", len(media), len(body), llmHint)

	return pc, nil
}

func collectImages(doc *goquery.Document) []string {
	var urls []string
	if og := metaOr(doc, "og:image", ""); og != "" {
		urls = append(urls, og)
	}
	doc.Find("article img, body img").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if src, ok := s.Attr("src"); ok && src != "" {
			urls = append(urls, src)
		}
		return len(urls) < 10
	})
	return urls
}

func canonicalURL(doc *goquery.Document, fallback string) string {
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok && href != "" {
		return href
	}
	if og, ok := doc.Find(`meta[property="og:url"]`).First().Attr("content"); ok && og != "" {
		return og
	}
	return fallback
}

func metaOr(doc *goquery.Document, property, fallback string) string {
	v, ok := doc.Find(fmt.Sprintf(`meta[property="%s"]`, property)).First().Attr("content")
	if ok && v != "" {
		return v
	}
	return fallback
}

func metaName(doc *goquery.Document, name string) string {
	v, _ := doc.Find(fmt.Sprintf(`meta[name="%s"]`, name)).First().Attr("content")
	return v
}

func metaTags(doc *goquery.Document) []string {
	kw, _ := doc.Find(`meta[name="keywords"]`).First().Attr("content")
	if kw == "" {
		return nil
	}
	parts := strings.Split(kw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// extractBody strips script/style/nav/footer boilerplate and returns the
// remaining visible text, preferring an <article> element when present.
func extractBody(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header, noscript").Remove()
	scope := doc.Find("article").First()
	if scope.Length() == 0 {
		scope = doc.Find("body").First()
	}
	return strings.TrimSpace(scope.Text())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
