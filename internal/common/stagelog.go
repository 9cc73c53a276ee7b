// Package common carries cross-cutting helpers shared by the worker
// pipelines (parse, match, push), following the teacher's per-stage
// structured-logging convention.
package common

import (
	"context"

	"github.com/vaultstream/vaultstream/internal/logger"
)

// StageInfo logs an informational event for a named pipeline stage/action.
func StageInfo(ctx context.Context, stage, action string, fields map[string]interface{}) {
	logger.Info(withStageFields(ctx, stage, action, fields), "stage event")
}

// StageWarn logs a warning event for a named pipeline stage/action.
func StageWarn(ctx context.Context, stage, action string, fields map[string]interface{}) {
	logger.Warn(withStageFields(ctx, stage, action, fields), "stage event")
}

// StageError logs an error event for a named pipeline stage/action.
func StageError(ctx context.Context, stage, action string, fields map[string]interface{}) {
	logger.Error(withStageFields(ctx, stage, action, fields), "stage event")
}

func withStageFields(
	ctx context.Context, stage, action string, fields map[string]interface{},
) context.Context {
	merged := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		merged[k] = v
	}
	merged["stage"] = stage
	merged["action"] = action
	return logger.WithFields(ctx, merged)
}
