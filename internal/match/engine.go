// Package match implements C6: the rule-matching and approval-gating engine
// that turns a freshly-parsed Content into ContentQueueItem rows.
package match

import (
	"context"
	"time"

	"github.com/vaultstream/vaultstream/internal/common"
	apperrors "github.com/vaultstream/vaultstream/internal/errors"
	"github.com/vaultstream/vaultstream/internal/ratelimit"
	"github.com/vaultstream/vaultstream/internal/types"
	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

// Engine implements interfaces.MatchEngine (§4.6).
type Engine struct {
	rules   interfaces.RuleRepository
	queue   interfaces.QueueRepository
	pushed  interfaces.PushedRecordRepository
	bots    interfaces.BotRepository
	limiter interfaces.RateLimiter
	bus     interfaces.EventBus
}

// New builds the match engine.
func New(
	rules interfaces.RuleRepository,
	queue interfaces.QueueRepository,
	pushed interfaces.PushedRecordRepository,
	bots interfaces.BotRepository,
	limiter interfaces.RateLimiter,
	bus interfaces.EventBus,
) *Engine {
	return &Engine{rules: rules, queue: queue, pushed: pushed, bots: bots, limiter: limiter, bus: bus}
}

var _ interfaces.MatchEngine = (*Engine)(nil)

// Evaluate implements interfaces.MatchEngine.Evaluate: the read-only half of
// match_and_enqueue, used by API previews and tests.
func (e *Engine) Evaluate(ctx context.Context, c *types.Content) ([]interfaces.MatchResult, error) {
	rules, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	var results []interfaces.MatchResult
	for i := range rules {
		rule := &rules[i]
		mc, err := types.ParseMatchConditions(rule.MatchConditions)
		if err != nil {
			common.StageWarn(ctx, "match", "bad_match_conditions", map[string]interface{}{"rule_id": rule.ID, "error": err.Error()})
			continue
		}
		if !mc.Matches(c) {
			continue
		}

		routedNSFW := false
		if c.IsNSFW {
			switch rule.NSFWPolicy {
			case types.NSFWBlock:
				continue
			case types.NSFWSeparateChannel:
				routedNSFW = true
			}
		}

		needsApproval, autoApproved := e.approvalDecision(rule, c)

		for j := range rule.Targets {
			target := &rule.Targets[j]
			if !target.Enabled {
				continue
			}
			if routedNSFW {
				rerouted, ok := e.rerouteToNSFWChat(ctx, target)
				if !ok {
					continue
				}
				target = rerouted
			}
			results = append(results, interfaces.MatchResult{
				Rule: rule, Target: target,
				NeedsApproval: needsApproval,
				AutoApproved:  autoApproved,
				RoutedNSFW:    routedNSFW,
			})
		}
	}
	return results, nil
}

// rerouteToNSFWChat implements §4.6 step 3: nsfw_policy=separate_channel
// sends matched targets to their bot_chat.nsfw_chat_id instead of the
// original chat, skipping the target entirely when none is configured.
func (e *Engine) rerouteToNSFWChat(ctx context.Context, target *types.DistributionTarget) (*types.DistributionTarget, bool) {
	chat, err := e.bots.GetChat(ctx, target.BotChatID)
	if err != nil || chat.NSFWChatID == nil {
		return nil, false
	}
	rerouted := *target
	rerouted.BotChatID = *chat.NSFWChatID
	return &rerouted, true
}

func (e *Engine) approvalDecision(rule *types.DistributionRule, c *types.Content) (needsApproval, autoApproved bool) {
	if c.ReviewStatus == types.ReviewApproved || c.ReviewStatus == types.ReviewAutoApproved {
		return false, false
	}
	if !rule.ApprovalRequired {
		return false, false
	}
	if rule.AutoApproveConditions == nil {
		return true, false
	}
	ac, err := types.ParseAutoApproveConditions(rule.AutoApproveConditions)
	if err != nil || ac == nil {
		return true, false
	}
	if ac.Matches(c) {
		return false, true
	}
	return true, false
}

// MatchAndEnqueue implements §4.6's single entry point: evaluate every
// enabled rule against c and upsert the resulting ContentQueueItem rows.
func (e *Engine) MatchAndEnqueue(ctx context.Context, c *types.Content) error {
	results, err := e.Evaluate(ctx, c)
	if err != nil {
		return err
	}

	now := time.Now()
	changed := false
	for _, res := range results {
		targetID := res.Target.BotChatID
		if rec, err := e.pushed.Get(ctx, c.ID, targetID); err == nil {
			// §4.6 step 5 dedup bypass: only a push-after-reviewed qualifies
			// as "already sent and not reopened".
			if c.ReviewedAt == nil || !rec.Reopened(c.ReviewedAt) {
				continue
			}
		} else if apperrors.KindOf(err) != apperrors.KindNotFound {
			return err
		}

		scheduledAt := now
		rateLimitReason := ""
		if res.Rule.RateLimit > 0 && res.Rule.TimeWindow > 0 {
			window := time.Duration(res.Rule.TimeWindow) * time.Second
			ok, retryAfter, err := e.limiter.Allow(ctx, targetID, res.Rule.RateLimit, window)
			if err != nil {
				return err
			}
			if !ok {
				scheduledAt = now.Add(retryAfter)
				rateLimitReason = ratelimit.Reason(res.Rule.RateLimit, window)
			}
		}

		status := types.QueueStatusScheduled
		if res.NeedsApproval {
			status = types.QueueStatusPending
		}

		item := &types.ContentQueueItem{
			ContentID:       c.ID,
			RuleID:          res.Rule.ID,
			BotChatID:       targetID,
			Status:          status,
			ScheduledAt:     &scheduledAt,
			Priority:        res.Rule.Priority,
			MaxAttempts:     3,
			NeedsApproval:   res.NeedsApproval,
			PassedRateLimit: rateLimitReason == "",
			RateLimitReason: rateLimitReason,
		}
		if res.AutoApproved {
			item.ApprovedAt = &now
			item.ApprovedBy = "auto"
		}
		if err := e.queue.Upsert(ctx, item); err != nil {
			return err
		}
		changed = true
	}

	if changed {
		return e.bus.Publish(ctx, types.EventQueueItemCreated, map[string]interface{}{"content_id": c.ID})
	}
	return nil
}
