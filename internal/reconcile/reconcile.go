// Package reconcile refreshes locally stored merge request statuses from the
// code-hosting service.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ALT-F4-LLC/fixtrack/internal/logging"
	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

const (
	// DefaultLookbackDays applies when neither caller nor config sets a window.
	DefaultLookbackDays = 7
	// DefaultTimeout bounds one collaborator round-trip.
	DefaultTimeout = 60 * time.Second

	changedBy = "reconcile"
)

// Store is the subset of the tracking store used by reconciliation.
type Store interface {
	GetPendingMrRecords(lookbackDays int) []model.MrRecord
	BatchUpdateMrStatus(updates []model.MrStatusUpdate, changedBy string) int
	RecordReconcileRun(run model.ReconcileRun) bool
}

// Config tunes a Service.
type Config struct {
	LookbackDays int
	Timeout      time.Duration
}

// Result summarizes one reconciliation cycle.
type Result struct {
	RunID        string        `json:"run_id"`
	Success      bool          `json:"success"`
	TotalChecked int           `json:"total_checked"`
	Updated      int           `json:"updated"`
	Failed       int           `json:"failed"`
	Err          string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Summary renders r for humans, e.g. "3 updated" or
// "0 updated, error: collaborator query: timeout".
func Summary(r Result) string {
	if !r.Success {
		return fmt.Sprintf("%d updated, error: %s", r.Updated, r.Err)
	}
	s := fmt.Sprintf("%d updated", r.Updated)
	if r.Failed > 0 {
		s += fmt.Sprintf(", %d failed", r.Failed)
	}
	return s
}

// Service runs reconciliation cycles.
type Service struct {
	store  Store
	source MergeRequestSource
	cfg    Config
	logger *slog.Logger
}

// New returns a Service. Zero config values take the package defaults.
func New(store Store, source MergeRequestSource, cfg Config, logger *slog.Logger) *Service {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Service{
		store:  store,
		source: source,
		cfg:    cfg,
		logger: logging.OrDiscard(logger).With("component", "reconcile"),
	}
}

// Reconcile runs one cycle over merge requests submitted within the last
// lookbackDays days; zero or less uses the configured window. A collaborator
// failure is reported in the result, never returned as an error, and leaves
// the store untouched.
func (s *Service) Reconcile(ctx context.Context, lookbackDays int) Result {
	if lookbackDays <= 0 {
		lookbackDays = s.cfg.LookbackDays
	}

	start := time.Now()
	res := s.run(ctx, lookbackDays)
	res.RunID = uuid.NewString()
	res.Duration = time.Since(start)

	s.store.RecordReconcileRun(model.ReconcileRun{
		ID:           res.RunID,
		StartedAt:    start.UTC(),
		FinishedAt:   start.Add(res.Duration).UTC(),
		Success:      res.Success,
		TotalChecked: res.TotalChecked,
		Updated:      res.Updated,
		Failed:       res.Failed,
		Error:        res.Err,
	})

	if res.Success {
		s.logger.Info("reconcile finished",
			"run_id", res.RunID,
			"checked", res.TotalChecked,
			"updated", res.Updated,
			"failed", res.Failed,
			"duration", res.Duration,
		)
	} else {
		s.logger.Error("reconcile failed", "run_id", res.RunID, "err", res.Err)
	}
	return res
}

func (s *Service) run(ctx context.Context, lookbackDays int) Result {
	pending := s.store.GetPendingMrRecords(lookbackDays)
	if len(pending) == 0 {
		return Result{Success: true}
	}

	refs := make([]MergeRequestRef, 0, len(pending))
	for _, m := range pending {
		refs = append(refs, MergeRequestRef{MrURL: m.MrURL, ProjectID: m.ProjectID, MrID: m.MrExternalID})
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	states, err := s.source.QueryMergeRequests(qctx, refs)
	if err == nil && qctx.Err() != nil {
		err = qctx.Err()
	}
	if err != nil {
		var ce *CollaboratorError
		if !errors.As(err, &ce) {
			err = &CollaboratorError{Op: "query", Err: err}
		}
		return Result{TotalChecked: len(pending), Err: err.Error()}
	}

	res := Result{Success: true, TotalChecked: len(pending)}
	var staged []model.MrStatusUpdate
	for _, m := range pending {
		st, ok := states[m.MrURL]
		if !ok {
			res.Failed++
			s.logger.Warn("merge request state unavailable", "mr_url", m.MrURL)
			continue
		}

		status, reason, ok := MapState(st.State, st.MergeStatus)
		if !ok {
			s.logger.Warn("unknown merge request state", "mr_url", m.MrURL, "state", st.State)
			continue
		}
		if unchanged(m.Status, status) {
			continue
		}
		staged = append(staged, model.MrStatusUpdate{MrURL: m.MrURL, Status: status, RejectionReason: reason})
	}

	if len(staged) > 0 {
		res.Updated = s.store.BatchUpdateMrStatus(staged, changedBy)
		res.Failed += len(staged) - res.Updated
	}
	return res
}

// unchanged reports whether the stored status already reflects mapped. A
// stored rejection outranks opened and closed; only a merge replaces it.
func unchanged(stored, mapped model.MrStatus) bool {
	if stored == model.MrStatusRejected {
		return mapped != model.MrStatusMerged
	}
	return stored == mapped
}

// MapState translates the collaborator's state vocabulary. A closed merge
// request whose merge status is known and not mergeable carries that detail
// as a rejection reason. ok is false for states with no local equivalent.
func MapState(state, mergeStatus string) (status model.MrStatus, reason *string, ok bool) {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "opened":
		return model.MrStatusCreated, nil, true
	case "merged":
		return model.MrStatusMerged, nil, true
	case "closed":
		ms := strings.TrimSpace(mergeStatus)
		if ms != "" && !strings.EqualFold(ms, "can_be_merged") {
			r := "closed without merge, merge status: " + ms
			return model.MrStatusClosed, &r, true
		}
		return model.MrStatusClosed, nil, true
	default:
		return "", nil, false
	}
}
