package storage

import (
	"context"

	"modelsel/internal/model"
)

// Store persists finished search runs.
type Store interface {
	Init(ctx context.Context) error
	SaveOrderRun(ctx context.Context, run model.OrderRun) error
	GetOrderRun(ctx context.Context, id string) (model.OrderRun, bool, error)
	SaveInputsRun(ctx context.Context, run model.InputsRun) error
	GetInputsRun(ctx context.Context, id string) (model.InputsRun, bool, error)
	// ListRuns returns summaries of both kinds ordered by creation time.
	ListRuns(ctx context.Context) ([]model.RunSummary, error)
}
