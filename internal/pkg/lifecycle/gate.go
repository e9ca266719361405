package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/audit"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/metrics"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/usercontext"
)

const maxNotesLength = 5000

// Recorder is the audit sink used by the gate.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry)
}

// EventKind tells listeners what happened to a report.
type EventKind string

const (
	EventSubmit     EventKind = "submit"
	EventTransition EventKind = "transition"
	EventUpdate     EventKind = "update"
	EventDelete     EventKind = "delete"
)

// Event is published after a report mutation has been stored.
type Event struct {
	Kind     EventKind
	ReportID string
	From     models.ReportStatus
	To       models.ReportStatus
	Report   *models.Report // nil for deletes
}

// Listener reacts to stored mutations. Listeners must not fail the request.
type Listener interface {
	ReportChanged(ctx context.Context, ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev Event)

func (f ListenerFunc) ReportChanged(ctx context.Context, ev Event) { f(ctx, ev) }

// TransitionRequest asks the gate to move a report into Target.
type TransitionRequest struct {
	ReportID string
	Target   string
	Notes    *string
	Actor    usercontext.UserContext
}

// TransitionResult describes the outcome. Changed is false for idempotent repeats.
type TransitionResult struct {
	Report  *models.Report
	From    models.ReportStatus
	To      models.ReportStatus
	Changed bool
}

// UpdateRequest carries the admin-editable fields. Nil means unchanged.
type UpdateRequest struct {
	Severity   *string
	Priority   *string
	AdminNotes *string
}

// Gate is the only writer of report status, review stamps and admin fields.
type Gate struct {
	reports   repository.ReportRepository
	recorder  Recorder
	listeners []Listener
	now       func() time.Time
}

func NewGate(reports repository.ReportRepository, recorder Recorder, listeners ...Listener) *Gate {
	return &Gate{
		reports:   reports,
		recorder:  recorder,
		listeners: listeners,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Transition validates, authorizes and applies a status change as a compare-and-swap.
func (g *Gate) Transition(ctx context.Context, req TransitionRequest) (TransitionResult, error) {
	target, err := models.ParseReportStatus(req.Target)
	if err != nil {
		metrics.RecordTransition("unknown", string(apperror.KindValidation))
		return TransitionResult{}, apperror.Validation("status must be one of verified, rejected or resolved")
	}
	if err := authorizeTransition(req.Actor, target); err != nil {
		metrics.RecordTransition(string(target), string(apperror.KindPermissionDenied))
		return TransitionResult{}, err
	}
	if req.Notes != nil && len(*req.Notes) > maxNotesLength {
		return TransitionResult{}, apperror.Validation("admin notes must be at most %d characters", maxNotesLength)
	}

	current, err := g.load(ctx, req.ReportID)
	if err != nil {
		metrics.RecordTransition(string(target), string(apperror.KindOf(err)))
		return TransitionResult{}, err
	}

	if target != models.ReportStatusPending && current.Status == target {
		metrics.RecordTransition(string(target), "noop")
		return TransitionResult{Report: current, From: current.Status, To: target}, nil
	}
	if !CanTransition(current.Status, target) {
		metrics.RecordTransition(string(target), string(apperror.KindInvalidTransition))
		return TransitionResult{}, invalidTransition(current.Status, target)
	}

	from := current.Status
	change := g.statusChange(req, target)
	swapped, err := g.reports.CompareAndSwapStatus(ctx, current.ID, from, change)
	if err != nil {
		return TransitionResult{}, apperror.Internal("Could not update the report", err)
	}

	if !swapped {
		// Someone else moved the report between our read and the swap.
		latest, err := g.load(ctx, req.ReportID)
		if err != nil {
			metrics.RecordTransition(string(target), string(apperror.KindOf(err)))
			return TransitionResult{}, err
		}
		if latest.Status == target {
			metrics.RecordTransition(string(target), "noop")
			return TransitionResult{Report: latest, From: latest.Status, To: target}, nil
		}
		metrics.RecordTransition(string(target), string(apperror.KindInvalidTransition))
		return TransitionResult{}, invalidTransition(latest.Status, target)
	}

	updated, err := g.load(ctx, current.ID)
	if err != nil {
		// The swap is stored; report the state we wrote.
		log.Warnf("[Gate] Reload of report %s after transition failed: %v", current.ID, err)
		updated = applyChange(*current, change)
	}
	metrics.RecordTransition(string(target), "applied")

	details := map[string]interface{}{"from": string(from), "to": string(target)}
	if req.Notes != nil {
		details["admin_notes"] = *req.Notes
	}
	g.recorder.Record(ctx, audit.Entry{
		Actor:        req.Actor,
		Action:       auditAction(target),
		Description:  fmt.Sprintf("Report %s moved from %s to %s", updated.ID, from, target),
		ResourceType: models.ResourceReport,
		ResourceID:   updated.ID,
		Details:      details,
	})
	g.publish(ctx, Event{Kind: EventTransition, ReportID: updated.ID, From: from, To: target, Report: updated})

	return TransitionResult{Report: updated, From: from, To: target, Changed: true}, nil
}

// Update edits severity, priority and admin notes.
func (g *Gate) Update(ctx context.Context, id string, req UpdateRequest, actor usercontext.UserContext) (*models.Report, error) {
	if !actor.HasPermission(permission.ReportUpdate) {
		return nil, apperror.PermissionDenied("You do not have permission to update reports")
	}

	var patch repository.ReportPatch
	details := map[string]interface{}{}
	if req.Severity != nil {
		sev := models.Severity(strings.ToLower(strings.TrimSpace(*req.Severity)))
		if !slices.Contains(models.Severities, sev) {
			return nil, apperror.Validation("severity must be one of low, medium or high")
		}
		patch.Severity = &sev
		details["severity"] = string(sev)
	}
	if req.Priority != nil {
		pr := models.Priority(strings.ToLower(strings.TrimSpace(*req.Priority)))
		if !slices.Contains(models.Priorities, pr) {
			return nil, apperror.Validation("priority must be one of low, medium, high or urgent")
		}
		patch.Priority = &pr
		details["priority"] = string(pr)
	}
	if req.AdminNotes != nil {
		if len(*req.AdminNotes) > maxNotesLength {
			return nil, apperror.Validation("admin notes must be at most %d characters", maxNotesLength)
		}
		patch.AdminNotes = req.AdminNotes
		details["admin_notes"] = *req.AdminNotes
	}
	if len(details) == 0 {
		return nil, apperror.Validation("nothing to update: send severity, priority or adminNotes")
	}

	if err := g.reports.Update(ctx, id, patch); err != nil {
		return nil, translate(err, id)
	}
	updated, err := g.load(ctx, id)
	if err != nil {
		return nil, err
	}

	g.recorder.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       models.ActionReportUpdate,
		Description:  fmt.Sprintf("Report %s updated", id),
		ResourceType: models.ResourceReport,
		ResourceID:   id,
		Details:      details,
	})
	g.publish(ctx, Event{Kind: EventUpdate, ReportID: id, From: updated.Status, To: updated.Status, Report: updated})
	return updated, nil
}

// Delete removes a report permanently.
func (g *Gate) Delete(ctx context.Context, id string, actor usercontext.UserContext) error {
	if !actor.HasPermission(permission.ReportDelete) {
		return apperror.PermissionDenied("You do not have permission to delete reports")
	}

	existing, err := g.load(ctx, id)
	if err != nil {
		return err
	}
	if err := g.reports.Delete(ctx, id); err != nil {
		return translate(err, id)
	}

	g.recorder.Record(ctx, audit.Entry{
		Actor:        actor,
		Action:       models.ActionReportDelete,
		Description:  fmt.Sprintf("Report %s deleted", id),
		ResourceType: models.ResourceReport,
		ResourceID:   id,
		Severity:     models.ActivitySeverityWarning,
		Details: map[string]interface{}{
			"status":        string(existing.Status),
			"type":          string(existing.Type),
			"tracking_code": existing.TrackingCode,
		},
	})
	g.publish(ctx, Event{Kind: EventDelete, ReportID: id, From: existing.Status})
	return nil
}

func (g *Gate) statusChange(req TransitionRequest, target models.ReportStatus) repository.StatusChange {
	now := g.now()
	change := repository.StatusChange{To: target, At: now, AdminNotes: req.Notes}
	switch target {
	case models.ReportStatusVerified:
		change.VerifiedAt = &now
		change.VerifiedBy = req.Actor.AdminIDPtr()
	case models.ReportStatusResolved:
		change.ResolvedAt = &now
	}
	return change
}

func (g *Gate) load(ctx context.Context, id string) (*models.Report, error) {
	report, err := g.reports.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, id)
	}
	return report, nil
}

func (g *Gate) publish(ctx context.Context, ev Event) {
	for _, l := range g.listeners {
		l.ReportChanged(ctx, ev)
	}
}

func authorizeTransition(actor usercontext.UserContext, target models.ReportStatus) error {
	if !actor.IsAdmin() {
		return apperror.PermissionDenied("Only admins can change report status")
	}
	token, ok := RequiredPermission(target)
	if !ok {
		return nil
	}
	if !actor.HasPermission(token) {
		return apperror.PermissionDenied("You do not have permission to mark reports as %s", target)
	}
	return nil
}

func invalidTransition(from, to models.ReportStatus) error {
	return apperror.InvalidTransition("A %s report cannot be marked as %s", from, to)
}

func translate(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("Report %s not found", id)
	}
	return apperror.Internal("Could not access the report", err)
}

func applyChange(r models.Report, change repository.StatusChange) *models.Report {
	r.Status = change.To
	r.UpdatedAt = change.At
	if change.VerifiedAt != nil {
		r.VerifiedAt = change.VerifiedAt
		r.VerifiedBy = change.VerifiedBy
	}
	if change.ResolvedAt != nil {
		r.ResolvedAt = change.ResolvedAt
	}
	if change.AdminNotes != nil {
		r.AdminNotes = *change.AdminNotes
	}
	return &r
}
