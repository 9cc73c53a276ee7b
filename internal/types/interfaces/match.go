package interfaces

import (
	"context"

	"github.com/vaultstream/vaultstream/internal/types"
)

// RuleRepository persists DistributionRule and its targets (§3).
type RuleRepository interface {
	Create(ctx context.Context, r *types.DistributionRule) error
	Get(ctx context.Context, id int64) (*types.DistributionRule, error)
	Update(ctx context.Context, r *types.DistributionRule) error
	Delete(ctx context.Context, id int64) error
	ListEnabled(ctx context.Context) ([]types.DistributionRule, error)
	List(ctx context.Context) ([]types.DistributionRule, error)

	// GetTarget resolves one rule's target row for a given chat, the lookup
	// the push worker needs to recover render overrides from a queue item's
	// bare (rule_id, bot_chat_id) pair.
	GetTarget(ctx context.Context, ruleID, botChatID int64) (*types.DistributionTarget, error)
}

// MatchEngine evaluates a Content against all enabled rules and returns the
// set of (rule, target) pairs it should be queued against (C6, §4.6).
type MatchEngine interface {
	Evaluate(ctx context.Context, c *types.Content) ([]MatchResult, error)
	MatchAndEnqueue(ctx context.Context, c *types.Content) error
}

// MatchResult is one matched (rule, target) pairing, pre-loaded with the
// decisions §4.6 requires before a queue item can be created.
type MatchResult struct {
	Rule          *types.DistributionRule
	Target        *types.DistributionTarget
	NeedsApproval bool
	AutoApproved  bool
	RoutedNSFW    bool // true if NSFWPolicy == separate_channel routing applied
}
