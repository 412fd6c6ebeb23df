// Package ingest is the ingestion validator: the ordered gates every
// submitted observation passes before it becomes a permanent data row.
package ingest

import (
	"context"
	"errors"
	"time"

	datastore "github.com/dalemusser/trackhub/internal/app/store/data"
	queuestore "github.com/dalemusser/trackhub/internal/app/store/queue"
	subjectstore "github.com/dalemusser/trackhub/internal/app/store/subjects"
	"github.com/dalemusser/trackhub/internal/app/system/typereg"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.uber.org/zap"
)

// Rejection reason codes surfaced to agents. These are terminal per-item
// outcomes, never retried.
const (
	ReasonUnknownType    = "unknown_type"
	ReasonUnknownProfile = "unknown_profile"
)

// Item is one submitted observation.
type Item struct {
	Platform   string         `json:"platform"`
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload,omitempty"`
	ObservedAt time.Time      `json:"observed_at"`
}

// Result is the per-item outcome. Reason is set only when Accepted is
// false.
type Result struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

type Validator struct {
	types    *typereg.Registry
	subjects *subjectstore.Store
	data     *datastore.Store
	queue    *queuestore.Store
	log      *zap.Logger
}

func New(types *typereg.Registry, subjects *subjectstore.Store, data *datastore.Store, queue *queuestore.Store, logger *zap.Logger) *Validator {
	return &Validator{
		types:    types,
		subjects: subjects,
		data:     data,
		queue:    queue,
		log:      logger,
	}
}

// Ingest runs the gates in order: schema, membership, dedup+commit,
// freshness signal. A non-nil error means storage failed and the item may
// be retried; a Rejected result is final.
//
// The freshness signal fires only after the commit returns. A crash in
// between leaves the queue entry stale, which re-leases an already-crawled
// profile; the dedup index absorbs the resulting resubmission.
func (v *Validator) Ingest(ctx context.Context, caller models.User, item Item) (Result, error) {
	kind, ok := v.types.Kind(item.Platform, item.Type)
	if !ok {
		return Result{Reason: ReasonUnknownType}, nil
	}

	if _, err := v.subjects.Resolve(ctx, item.Platform, item.ID); err != nil {
		if errors.Is(err, subjectstore.ErrNotFound) {
			return Result{Reason: ReasonUnknownProfile}, nil
		}
		return Result{}, err
	}

	rec := models.DataRecord{
		Platform:   item.Platform,
		ID:         item.ID,
		Kind:       kind,
		Type:       item.Type,
		Payload:    item.Payload,
		ObservedAt: item.ObservedAt.UTC(),
		AddedBy:    caller.UUID,
	}
	if err := rec.ComputeDedup(); err != nil {
		return Result{}, err
	}

	inserted, err := v.data.Insert(ctx, rec)
	if err != nil {
		return Result{}, err
	}
	if !inserted {
		// Idempotent resubmission; scheduling state was already updated
		// when the row first landed.
		return Result{Accepted: true}, nil
	}

	// Freshness signal. Failures here are logged, not returned: the data
	// is committed and the queue entry just stays stale until the next
	// successful ingest or lease cycle.
	if err := v.queue.Observe(ctx, item.Platform, item.ID, rec.ObservedAt); err != nil {
		v.log.Warn("freshness update failed",
			zap.String("platform", item.Platform),
			zap.String("id", item.ID),
			zap.Error(err))
	}
	if err := v.queue.Release(ctx, item.Platform, item.ID, caller.UUID); err != nil {
		v.log.Warn("lease release failed",
			zap.String("platform", item.Platform),
			zap.String("id", item.ID),
			zap.Error(err))
	}
	return Result{Accepted: true}, nil
}

// IngestAll applies Ingest to a batch, stopping only on storage errors.
func (v *Validator) IngestAll(ctx context.Context, caller models.User, items []Item) ([]Result, error) {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		res, err := v.Ingest(ctx, caller, item)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
