// Package store persists solved plans so runs can be compared and served
// over HTTP after the fact.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/coverage-planner/internal/model"
)

// ErrNotFound reports a missing plan ID.
var ErrNotFound = eris.New("plan not found")

// PlanFilter specifies criteria for listing plans.
type PlanFilter struct {
	Instance string            `json:"instance,omitempty"`
	Status   model.SolveStatus `json:"status,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Offset   int               `json:"offset,omitempty"`
}

// Store defines the plan persistence interface.
type Store interface {
	SavePlan(ctx context.Context, plan *model.Plan) error
	GetPlan(ctx context.Context, id string) (*model.Plan, error)
	ListPlans(ctx context.Context, filter PlanFilter) ([]model.Plan, error)
	DeletePlan(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
