package taskqueue

import (
	"github.com/hibiken/asynq"

	"github.com/vaultstream/vaultstream/internal/types/interfaces"
)

// NewMux wires each task type to its interfaces.TaskHandler implementation
// into an asynq.ServeMux ready to hand to (*asynq.Server).Run. Only
// parseworker.Worker implements TaskHandler in this repository; the
// distribute and push handlers come from the caller.
func NewMux(parse, distribute, push interfaces.TaskHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskParseContent, parse.Handle)
	mux.HandleFunc(TaskDistribute, distribute.Handle)
	mux.HandleFunc(TaskPushQueueItem, push.Handle)
	return mux
}
