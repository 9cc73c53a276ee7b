// Package pushworker implements C8: the claim->render->rate-limit->push->
// record loop that turns a due ContentQueueItem into a message on the target
// platform, mirroring the claim/retry shape internal/parseworker uses for C5.
package pushworker

import (
	"context"
	"fmt"
	"time"

	"github.com/vaultstream/vaultstream/internal/common"
	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/telemetry"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

// Service implements interfaces.PushService.
type Service struct {
	queue    interfaces.QueueRepository
	content  interfaces.ContentRepository
	rules    interfaces.RuleRepository
	bots     interfaces.BotRegistry
	pushed   interfaces.PushedRecordRepository
	limiter  interfaces.RateLimiter
	pushers  map[string]interfaces.PlatformPusher
	bus      interfaces.EventBus
	renderer *Renderer

	lockedBy  string
	leaseTTL  time.Duration
	batchSize int
}

var _ interfaces.PushService = (*Service)(nil)

// New builds the push worker. pushers is keyed by platform name
// (types.BotConfig.Platform), matching interfaces.PlatformPusher.Platform().
func New(
	queue interfaces.QueueRepository,
	content interfaces.ContentRepository,
	rules interfaces.RuleRepository,
	bots interfaces.BotRegistry,
	pushed interfaces.PushedRecordRepository,
	limiter interfaces.RateLimiter,
	pushers []interfaces.PlatformPusher,
	bus interfaces.EventBus,
	lockedBy string,
) *Service {
	byPlatform := make(map[string]interfaces.PlatformPusher, len(pushers))
	for _, p := range pushers {
		byPlatform[p.Platform()] = p
	}
	return &Service{
		queue:     queue,
		content:   content,
		rules:     rules,
		bots:      bots,
		pushed:    pushed,
		limiter:   limiter,
		pushers:   byPlatform,
		bus:       bus,
		renderer:  NewRenderer(),
		lockedBy:  lockedBy,
		leaseTTL:  5 * time.Minute,
		batchSize: 25,
	}
}

// preparedPush holds everything needed to deliver one already-rendered
// queue item, once dedup/rate-limit/render have all cleared.
type preparedPush struct {
	item    *types.ContentQueueItem
	content *types.Content
	target  *types.DistributionTarget
	chatID  string
	token   string
	pusher  interfaces.PlatformPusher
	msg     interfaces.RenderedMessage
}

// RunOnce implements interfaces.PushService: claims up to one batch of due
// items, groups the §4.8 step-3 merge-forward-eligible subset of that batch
// by (target, scheduled_at), and drives each group through the push
// pipeline. A claimed batch counts as "processed" regardless of whether an
// item ends up grouped, pushed individually, skipped, or failed.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	ctx, span := telemetry.Start(ctx, "pushworker.RunOnce")
	defer span.End()

	claimed, err := s.queue.ClaimDue(ctx, time.Now(), s.lockedBy, s.batchSize)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	prepared := make([]*preparedPush, 0, len(claimed))
	for i := range claimed {
		if p := s.prepare(ctx, &claimed[i]); p != nil {
			prepared = append(prepared, p)
		}
	}

	for _, group := range groupForMerge(prepared) {
		if len(group) > 1 {
			if batcher, ok := group[0].pusher.(interfaces.BatchPlatformPusher); ok {
				s.pushGroup(ctx, batcher, group)
				continue
			}
		}
		for _, p := range group {
			s.pushOne(ctx, p)
		}
	}
	return len(claimed), nil
}

// groupForMerge partitions prepared items into forward-eligible batches:
// items whose target has merge_forward=true and share a (bot_chat_id,
// scheduled_at) key go into the same group (§4.8 step 3, §8 property 5);
// everything else gets its own singleton group so it is always pushed
// individually.
func groupForMerge(prepared []*preparedPush) [][]*preparedPush {
	groups := make(map[string][]*preparedPush)
	order := make([]string, 0, len(prepared))
	for _, p := range prepared {
		key := fmt.Sprintf("single-%d", p.item.ID)
		if p.target.MergeForward && p.item.ScheduledAt != nil {
			key = fmt.Sprintf("merge-%d-%d", p.item.BotChatID, p.item.ScheduledAt.Unix())
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p)
	}
	out := make([][]*preparedPush, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key])
	}
	return out
}

// prepare runs every pre-push check (content/target/rule resolution, dedup,
// rate limit, bot/pusher resolution, render) for one claimed item. On any
// terminal condition it marks the queue row itself (fail/skip/reschedule)
// and returns nil; a non-nil return means the item is cleared to push.
func (s *Service) prepare(ctx context.Context, item *types.ContentQueueItem) *preparedPush {
	c, err := s.content.Get(ctx, item.ContentID)
	if err != nil {
		s.fail(ctx, item, types.ErrorKindNotFound, "content no longer exists", false)
		return nil
	}

	target, err := s.rules.GetTarget(ctx, item.RuleID, item.BotChatID)
	if err != nil {
		s.fail(ctx, item, types.ErrorKindNotFound, "distribution target no longer exists", false)
		return nil
	}
	rule, err := s.rules.Get(ctx, item.RuleID)
	if err != nil {
		s.fail(ctx, item, types.ErrorKindNotFound, "rule no longer exists", false)
		return nil
	}

	if existing, err := s.pushed.Get(ctx, item.ContentID, item.BotChatID); err == nil && existing != nil {
		if !existing.Reopened(c.ReviewedAt) {
			s.skip(ctx, item, "already pushed to this target")
			return nil
		}
	}

	if rule.RateLimit > 0 {
		window := time.Duration(rule.TimeWindow) * time.Second
		ok, retryAfter, err := s.limiter.Allow(ctx, item.BotChatID, rule.RateLimit, window)
		if err != nil {
			s.fail(ctx, item, types.ErrorKindTransient, "rate limit check failed: "+err.Error(), true)
			return nil
		}
		if !ok {
			next := time.Now().Add(retryAfter)
			s.queue.MarkFailed(ctx, item.ID, types.ErrorKindNone, "", &next)
			s.queue.SetSchedule(ctx, item.ContentID, next)
			s.bus.Publish(ctx, types.EventRateLimited, map[string]interface{}{
				"queue_item_id": item.ID, "content_id": item.ContentID, "retry_after_seconds": retryAfter.Seconds(),
			})
			return nil
		}
	}

	bot, chat, token, err := s.bots.Resolve(ctx, item.BotChatID)
	if err != nil {
		s.fail(ctx, item, types.ErrorKindNotFound, "bot chat no longer resolvable", false)
		return nil
	}
	pusher, ok := s.pushers[bot.Platform]
	if !ok {
		s.fail(ctx, item, types.ErrorKindValidation, fmt.Sprintf("no pusher registered for platform %q", bot.Platform), false)
		return nil
	}

	msg, err := s.renderer.Render(rule, target, c)
	if err != nil {
		s.fail(ctx, item, types.ErrorKindValidation, "render failed: "+err.Error(), false)
		return nil
	}

	return &preparedPush{
		item:    item,
		content: c,
		target:  target,
		chatID:  chat.ChatID,
		token:   token,
		pusher:  pusher,
		msg:     msg,
	}
}

// pushOne delivers a single prepared item with its own Push call.
func (s *Service) pushOne(ctx context.Context, p *preparedPush) {
	ctx, span := telemetry.Start(ctx, "pushworker.push")
	defer span.End()

	messageID, err := p.pusher.Push(ctx, p.token, p.chatID, p.msg)
	if err != nil {
		telemetry.RecordError(span, err)
		s.handlePushError(ctx, p.item, err)
		return
	}
	s.recordSuccess(ctx, []*preparedPush{p}, messageID)
}

// pushGroup delivers a merge-forward-eligible batch as a single forwarded
// message, then fans the shared message ID back out to every member item.
func (s *Service) pushGroup(ctx context.Context, pusher interfaces.BatchPlatformPusher, group []*preparedPush) {
	ctx, span := telemetry.Start(ctx, "pushworker.push_forward")
	telemetry.SetIntAttr(span, "group_size", len(group))
	defer span.End()

	msgs := make([]interfaces.RenderedMessage, len(group))
	for i, p := range group {
		msgs[i] = p.msg
	}
	messageID, err := pusher.PushForward(ctx, group[0].token, group[0].chatID, msgs)
	if err != nil {
		telemetry.RecordError(span, err)
		for _, p := range group {
			s.handlePushError(ctx, p.item, err)
		}
		return
	}
	s.recordSuccess(ctx, group, messageID)
}

func (s *Service) handlePushError(ctx context.Context, item *types.ContentQueueItem, err error) {
	retryable := apperrors.IsRetryable(err)
	if item.AttemptCount+1 >= item.MaxAttempts || !retryable {
		s.fail(ctx, item, types.ErrorKindTransient, "push failed: "+err.Error(), false)
		return
	}
	next := time.Now().Add(backoff(item.AttemptCount))
	s.queue.MarkFailed(ctx, item.ID, types.ErrorKindTransient, err.Error(), &next)
	common.StageWarn(ctx, "pushworker", "push_retry_scheduled", map[string]interface{}{
		"queue_item_id": item.ID, "attempt": item.AttemptCount + 1, "next_attempt_at": next,
	})
}

func (s *Service) recordSuccess(ctx context.Context, group []*preparedPush, messageID string) {
	for _, p := range group {
		if err := s.queue.MarkSuccess(ctx, p.item.ID, messageID); err != nil {
			common.StageWarn(ctx, "pushworker", "mark_success_failed", map[string]interface{}{"error": err.Error()})
		}
		record := &types.PushedRecord{
			ContentID:  p.item.ContentID,
			TargetID:   p.item.BotChatID,
			MessageID:  messageID,
			PushStatus: "success",
			PushedAt:   time.Now(),
		}
		if err := s.pushed.Create(ctx, record); err != nil {
			common.StageWarn(ctx, "pushworker", "pushed_record_create_failed", map[string]interface{}{"error": err.Error()})
		}
		s.bus.Publish(ctx, types.EventPushSucceeded, map[string]interface{}{
			"queue_item_id": p.item.ID, "content_id": p.item.ContentID, "message_id": messageID,
		})
		s.bus.Publish(ctx, types.EventContentPushed, map[string]interface{}{
			"queue_item_id": p.item.ID, "content_id": p.item.ContentID, "bot_chat_id": p.item.BotChatID,
		})
	}
}

func (s *Service) fail(ctx context.Context, item *types.ContentQueueItem, kind types.ErrorKind, msg string, retryable bool) {
	var next *time.Time
	if retryable && item.AttemptCount+1 < item.MaxAttempts {
		t := time.Now().Add(backoff(item.AttemptCount))
		next = &t
	}
	if err := s.queue.MarkFailed(ctx, item.ID, kind, msg, next); err != nil {
		common.StageWarn(ctx, "pushworker", "mark_failed_failed", map[string]interface{}{"error": err.Error()})
	}
	s.bus.Publish(ctx, types.EventPushFailed, map[string]interface{}{
		"queue_item_id": item.ID, "content_id": item.ContentID, "error": msg,
	})
}

func (s *Service) skip(ctx context.Context, item *types.ContentQueueItem, reason string) {
	if err := s.queue.MarkSkipped(ctx, item.ID, reason); err != nil {
		common.StageWarn(ctx, "pushworker", "mark_skipped_failed", map[string]interface{}{"error": err.Error()})
	}
	s.bus.Publish(ctx, types.EventQueueUpdated, map[string]interface{}{
		"queue_item_id": item.ID, "content_id": item.ContentID, "status": types.QueueStatusSkipped,
	})
}

// backoff mirrors taskqueue.RetryDelay's exponential-with-cap shape for the
// push loop's own in-repo reschedule, since failed pushes are retried by
// re-claiming the row rather than by asynq.
func backoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt)) * 10 * time.Second
	if d > 10*time.Minute {
		return 10 * time.Minute
	}
	return d
}
