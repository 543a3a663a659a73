// Package decision decides whether a finding needs remediation work by
// reconstructing its state from the tracking store on every call.
package decision

import (
	"fmt"
	"log/slog"

	"github.com/ALT-F4-LLC/fixtrack/internal/logging"
	"github.com/ALT-F4-LLC/fixtrack/internal/model"
	"github.com/ALT-F4-LLC/fixtrack/internal/rules"
	"github.com/ALT-F4-LLC/fixtrack/internal/store"
)

// Tracker is the subset of the tracking store the engine reads and writes.
type Tracker interface {
	GetIssueBasicInfo(findingKey string) *model.IssueRecord
	GetOrCreatePlaceholder(findingKey string) (*model.IssueRecord, bool, error)
	BackfillIfEmpty(findingKey, ticketKey, ticketProjectKey string, analysisProjectKey *string) (store.BackfillResult, error)
	GetLatestMrRecord(findingKey string) *model.MrRecord
	GetRejectedMrRecords() []model.MrRecord
}

// Outcome names the branch of the decision table that produced a Result.
type Outcome string

const (
	OutcomeExcluded Outcome = "excluded"
	OutcomeUnseen   Outcome = "unseen"
	OutcomeNoMr     Outcome = "no_mr"
	OutcomeRejected Outcome = "rejected"
	OutcomePending  Outcome = "pending"
	OutcomeDone     Outcome = "done"
)

// Actions recommended to the caller.
const (
	ActionNone     = "no action"
	ActionStart    = "create ticket and begin remediation"
	ActionRemedy   = "remediate and submit MR"
	ActionResubmit = "resubmit addressing rejection reason"
	ActionAwait    = "await outcome"
)

// Result is the engine's verdict for one finding.
type Result struct {
	NeedFix        bool            `json:"need_fix"`
	Reason         string          `json:"reason"`
	LatestMr       *model.MrRecord `json:"latest_mr,omitempty"`
	ActionRequired string          `json:"action_required"`
	Outcome        Outcome         `json:"outcome"`
}

// Finding identifies one analysis finding.
type Finding struct {
	Key                string
	RuleID             string
	AnalysisProjectKey string
}

// RefixCandidate is a finding whose most recent submission was rejected.
type RefixCandidate struct {
	FindingKey         string         `json:"finding_key"`
	TicketKey          *string        `json:"ticket_key"`
	AnalysisProjectKey *string        `json:"analysis_project_key"`
	Reason             string         `json:"reason"`
	Mr                 model.MrRecord `json:"mr"`
}

// Engine evaluates findings against the tracking store.
type Engine struct {
	tracker Tracker
	rules   rules.Provider
	logger  *slog.Logger
}

// New returns an Engine. A nil rule provider excludes nothing.
func New(tracker Tracker, provider rules.Provider, logger *slog.Logger) *Engine {
	if provider == nil {
		provider = rules.Nop()
	}
	return &Engine{
		tracker: tracker,
		rules:   provider,
		logger:  logging.OrDiscard(logger).With("component", "decision"),
	}
}

// Evaluate decides whether findingKey needs work. The only write it may
// perform is creating a placeholder for a finding seen for the first time.
func (e *Engine) Evaluate(findingKey, ruleID string) Result {
	if ruleID != "" && e.rules.IsExcluded(ruleID) {
		return Result{
			Reason:         "rule excluded: " + ruleID,
			ActionRequired: ActionNone,
			Outcome:        OutcomeExcluded,
		}
	}

	if e.tracker.GetIssueBasicInfo(findingKey) == nil {
		if _, _, err := e.tracker.GetOrCreatePlaceholder(findingKey); err != nil {
			e.logger.Error("placeholder not recorded", "finding", findingKey, "err", err)
		}
		return Result{
			NeedFix:        true,
			Reason:         "no existing record, placeholder created",
			ActionRequired: ActionStart,
			Outcome:        OutcomeUnseen,
		}
	}

	latest := e.tracker.GetLatestMrRecord(findingKey)
	if latest == nil {
		return Result{
			NeedFix:        true,
			Reason:         "issue tracked, no mr yet",
			ActionRequired: ActionRemedy,
			Outcome:        OutcomeNoMr,
		}
	}

	switch latest.Status {
	case model.MrStatusRejected:
		return Result{
			NeedFix:        true,
			Reason:         "latest MR rejected: " + latest.Rejection(),
			LatestMr:       latest,
			ActionRequired: ActionResubmit,
			Outcome:        OutcomeRejected,
		}
	case model.MrStatusCreated:
		return Result{
			Reason:         fmt.Sprintf("latest MR status: %s", latest.Status),
			LatestMr:       latest,
			ActionRequired: ActionAwait,
			Outcome:        OutcomePending,
		}
	default:
		return Result{
			Reason:         fmt.Sprintf("latest MR status: %s", latest.Status),
			LatestMr:       latest,
			ActionRequired: ActionNone,
			Outcome:        OutcomeDone,
		}
	}
}

// EnsureIssueTicket records that f is tracked by ticketKey. It creates the
// record, backfills a placeholder, or leaves an already ticketed record
// alone; all three count as success.
func (e *Engine) EnsureIssueTicket(f Finding, ticketKey, ticketProjectKey string) bool {
	var analysis *string
	if f.AnalysisProjectKey != "" {
		analysis = &f.AnalysisProjectKey
	}

	res, err := e.tracker.BackfillIfEmpty(f.Key, ticketKey, ticketProjectKey, analysis)
	if err != nil {
		e.logger.Error("ticket not recorded", "finding", f.Key, "ticket", ticketKey, "err", err)
		return false
	}
	e.logger.Debug("ticket ensured", "finding", f.Key, "ticket", ticketKey, "result", res.String())
	return true
}

// IssuesNeedingRefix returns rejected submissions that are still the latest
// attempt for their finding.
func (e *Engine) IssuesNeedingRefix() []RefixCandidate {
	var out []RefixCandidate
	for _, m := range e.tracker.GetRejectedMrRecords() {
		if !m.IsLatest {
			continue
		}
		out = append(out, RefixCandidate{
			FindingKey:         m.FindingKey,
			TicketKey:          m.TicketKey,
			AnalysisProjectKey: m.AnalysisProjectKey,
			Reason:             m.Rejection(),
			Mr:                 m,
		})
	}
	return out
}
