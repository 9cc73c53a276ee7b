// Package parseworker implements C5: the claim -> parse -> archive ->
// persist -> emit loop that turns a freshly-submitted URL into a fully
// normalized Content row and hands it to the match engine.
package parseworker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/panjf2000/ants/v2"

	"github.com/vaultstream/vaultstream/internal/common"
	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/settings"
	"github.com/vaultstream/vaultstream/internal/taskqueue"
	"github.com/vaultstream/vaultstream/internal/telemetry"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
	"github.com/vaultstream/vaultstream/internal/utils"
)

// Worker implements interfaces.TaskHandler for taskqueue.TaskParseContent,
// running the §4.5 pipeline with a bounded goroutine pool for media
// archival fan-out.
type Worker struct {
	content  interfaces.ContentRepository
	registry interfaces.AdapterRegistry
	storage  interfaces.ObjectStorage
	webp     interfaces.ImageTranscoder
	match    interfaces.MatchEngine
	bus      interfaces.EventBus
	settings *settings.Service

	pool       *ants.Pool
	httpClient *http.Client
}

// New builds the parse worker. concurrency bounds the media-download fan-out
// pool shared across tasks handled by this worker instance (§4.5: "one
// worker may run many goroutines; parallelism is bounded by a configurable
// concurrency, default 4").
func New(
	content interfaces.ContentRepository,
	registry interfaces.AdapterRegistry,
	storage interfaces.ObjectStorage,
	webp interfaces.ImageTranscoder,
	match interfaces.MatchEngine,
	bus interfaces.EventBus,
	settingsSvc *settings.Service,
	concurrency int,
) (*Worker, error) {
	if concurrency <= 0 {
		concurrency = 4
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindFatal, "creating parse worker pool", err)
	}
	return &Worker{
		content:    content,
		registry:   registry,
		storage:    storage,
		webp:       webp,
		match:      match,
		bus:        bus,
		settings:   settingsSvc,
		pool:       pool,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Release frees the underlying goroutine pool on worker shutdown.
func (w *Worker) Release() { w.pool.Release() }

var _ interfaces.TaskHandler = (*Worker)(nil)

// Handle implements interfaces.TaskHandler. It never returns a retryable
// error directly to asynq's own retry machinery for adapter failures that
// the §4.5 policy marks terminal (auth/not_found/validation): those are
// recorded on the Content row and acknowledged, not retried. Only transient
// adapter/storage failures bubble up so asynq reschedules per C3's backoff.
func (w *Worker) Handle(ctx context.Context, t *asynq.Task) error {
	ctx, span := telemetry.Start(ctx, "parseworker.handle")
	defer span.End()

	var payload taskqueue.ParseContentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		err = apperrors.Wrap(apperrors.KindValidation, "decoding parse payload", err)
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetIntAttr(span, "content_id", int(payload.ContentID))

	content, err := w.content.Get(ctx, payload.ContentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	common.StageInfo(ctx, "parse", "claimed", map[string]interface{}{"content_id": content.ID, "url": payload.URL})

	content.Status = types.ContentStatusProcessing
	if err := w.content.Update(ctx, content); err != nil {
		return err
	}

	adapter, err := w.registry.Resolve(payload.URL)
	if err != nil {
		return w.fail(ctx, content, types.ErrorKindValidation, "no adapter supports this url", false)
	}

	parsed, err := adapter.Parse(ctx, payload.URL)
	if err != nil {
		return w.handleAdapterError(ctx, content, err)
	}

	if w.settings != nil && w.settings.GetBool(ctx, "enable_archive_media_processing", false) {
		if err := w.archiveMedia(ctx, parsed); err != nil {
			// Archival is best-effort enrichment, not part of the §4.5
			// success/failure contract: log and keep the originals.
			common.StageWarn(ctx, "parse", "archive_failed", map[string]interface{}{"content_id": content.ID, "error": err.Error()})
		}
	}

	applyParsed(content, parsed)
	content.Status = types.ContentStatusPulled
	content.LastError = ""
	content.LastErrorType = types.ErrorKindNone
	content.LastErrorAt = nil
	if err := w.content.Update(ctx, content); err != nil {
		return err
	}

	if err := w.maybeAutoApprove(ctx, content); err != nil {
		return err
	}

	if err := w.match.MatchAndEnqueue(ctx, content); err != nil {
		return err
	}

	common.StageInfo(ctx, "parse", "completed", map[string]interface{}{"content_id": content.ID, "layout_type": content.LayoutType})
	return w.bus.Publish(ctx, types.EventContentParsed, map[string]interface{}{"content_id": content.ID})
}

// handleAdapterError applies the C3/§4.5 retry-vs-terminal split: transient
// errors bubble up so asynq reschedules per the exponential backoff policy;
// everything else is recorded on the row as a terminal failure.
func (w *Worker) handleAdapterError(ctx context.Context, content *types.Content, err error) error {
	var ae *types.AdapterError
	kind := types.ErrorKindTransient
	retryable := true
	if asErr, ok := err.(*types.AdapterError); ok {
		ae = asErr
		retryable = ae.Retryable()
		switch ae.Kind {
		case types.AdapterErrAuth:
			kind = types.ErrorKindAuth
		case types.AdapterErrNotFound:
			kind = types.ErrorKindNotFound
		case types.AdapterErrValidation, types.AdapterErrUnsupported:
			kind = types.ErrorKindValidation
		case types.AdapterErrTransient:
			kind = types.ErrorKindTransient
		}
	}
	if failErr := w.fail(ctx, content, kind, err.Error(), false); failErr != nil {
		return failErr
	}
	if retryable {
		return err
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, content *types.Content, kind types.ErrorKind, message string, retryable bool) error {
	message = utils.SanitizeForLog(message)
	now := time.Now()
	content.Status = types.ContentStatusFailed
	content.FailureCount++
	content.LastError = message
	content.LastErrorType = kind
	content.LastErrorAt = &now
	if err := w.content.Update(ctx, content); err != nil {
		return err
	}
	common.StageWarn(ctx, "parse", "failed", map[string]interface{}{
		"content_id": content.ID, "error_kind": kind, "error": message, "failure_count": content.FailureCount,
	})
	return w.bus.Publish(ctx, types.EventContentParseFailed, map[string]interface{}{
		"content_id": content.ID, "error_kind": kind, "error": message,
	})
}

// maybeAutoApprove implements §4.5 step 5: a pending review advances to
// auto_approved the moment a rule that Evaluate matches (one with at least
// one enabled target) has auto_approve_conditions that match the content.
func (w *Worker) maybeAutoApprove(ctx context.Context, content *types.Content) error {
	if content.ReviewStatus != types.ReviewPending {
		return nil
	}
	results, err := w.match.Evaluate(ctx, content)
	if err != nil {
		return err
	}
	for _, res := range results {
		ac, err := types.ParseAutoApproveConditions(res.Rule.AutoApproveConditions)
		if err == nil && ac != nil && ac.Matches(content) {
			now := time.Now()
			content.ReviewStatus = types.ReviewAutoApproved
			content.ReviewedAt = &now
			content.ReviewedBy = "auto"
			return w.content.Update(ctx, content)
		}
	}
	return nil
}

// applyParsed copies a fully-resolved ParsedContent onto the persisted row,
// preserving any manual layout_type_override already set on the Content.
func applyParsed(c *types.Content, p *types.ParsedContent) {
	c.Platform = p.Platform
	c.PlatformID = p.PlatformID
	c.CanonicalURL = firstNonEmpty(p.CanonicalURL, c.CanonicalURL)
	c.CleanURL = p.CleanURL
	c.Title = p.Title
	c.Description = p.Description
	c.AuthorName = p.AuthorName
	c.AuthorID = p.AuthorID
	c.AuthorAvatarURL = p.AuthorAvatarURL
	c.AuthorURL = p.AuthorURL
	c.CoverURL = p.CoverURL
	c.CoverColor = p.CoverColor
	c.MediaURLs = types.StringSlice(p.MediaURLs)
	c.Tags = types.StringSlice(p.Tags)
	c.IsNSFW = p.IsNSFW
	c.LayoutType = p.LayoutType
	c.ContentType = p.ContentType
	if len(p.ExtraStats) > 0 {
		if b, err := json.Marshal(p.ExtraStats); err == nil {
			c.ExtraStats = types.JSON(b)
		}
	}
	if len(p.RawMetadata) > 0 {
		if b, err := json.Marshal(p.RawMetadata); err == nil {
			c.RawMetadata = types.JSON(b)
		}
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// archivedImage is one entry of raw_metadata.archive.stored_images[] (§4.5
// step 3).
type archivedImage struct {
	OriginalURL string `json:"original_url"`
	Key         string `json:"key"`
	PublicURL   string `json:"public_url"`
}

// archiveMedia downloads every media URL, transcodes images to WebP,
// content-addresses them into C1, and records the mapping — fanning the
// downloads out across the worker's bounded goroutine pool (§4.5 step 3).
func (w *Worker) archiveMedia(ctx context.Context, p *types.ParsedContent) error {
	maxCount := 10
	if w.settings != nil {
		if n := w.settings.GetInt(ctx, "archive_image_max_count", 10); n > 0 {
			maxCount = n
		}
	}
	quality := 80
	if w.settings != nil {
		if q := w.settings.GetInt(ctx, "archive_image_webp_quality", 80); q > 0 {
			quality = q
		}
	}

	urls := p.MediaURLs
	if len(urls) > maxCount {
		urls = urls[:maxCount]
	}

	type result struct {
		img archivedImage
		err error
	}
	results := make([]result, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		i, u := i, u
		wg.Add(1)
		submitErr := w.pool.Submit(func() {
			defer wg.Done()
			img, err := w.archiveOne(ctx, u, quality)
			results[i] = result{img: img, err: err}
		})
		if submitErr != nil {
			wg.Done()
			results[i] = result{err: submitErr}
		}
	}
	wg.Wait()

	var stored []archivedImage
	var firstErr error
	for _, r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		stored = append(stored, r.img)
	}

	if len(stored) > 0 {
		raw := map[string]interface{}{}
		if len(p.RawMetadata) > 0 {
			raw = p.RawMetadata
		}
		raw["archive"] = map[string]interface{}{"stored_images": stored}
		p.RawMetadata = raw
	}
	return firstErr
}

func (w *Worker) archiveOne(ctx context.Context, sourceURL string, quality int) (archivedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return archivedImage{}, err
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return archivedImage{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return archivedImage{}, apperrors.NewInternalServerError("fetching media for archival")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, utils.GetMaxFileSize()))
	if err != nil {
		return archivedImage{}, err
	}

	webpData := body
	ext := "webp"
	if w.webp != nil {
		rc, err := w.webp.ToWebP(ctx, bytes.NewReader(body), quality)
		if err == nil {
			defer rc.Close()
			if converted, err := io.ReadAll(rc); err == nil {
				webpData = converted
			}
		}
	}

	key, publicURL, err := w.storage.Put(ctx, bytes.NewReader(webpData), int64(len(webpData)), "image/webp", ext)
	if err != nil {
		return archivedImage{}, err
	}
	return archivedImage{OriginalURL: sourceURL, Key: key, PublicURL: publicURL}, nil
}
