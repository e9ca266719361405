package lifecycle

import (
	"slices"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
)

// legal lists every allowed (from, to) pair. Rejected and resolved are terminal.
var legal = map[models.ReportStatus][]models.ReportStatus{
	models.ReportStatusPending:  {models.ReportStatusVerified, models.ReportStatusRejected},
	models.ReportStatusVerified: {models.ReportStatusResolved},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to models.ReportStatus) bool {
	return slices.Contains(legal[from], to)
}

// NextStatuses lists the statuses reachable from s.
func NextStatuses(s models.ReportStatus) []models.ReportStatus {
	return append([]models.ReportStatus(nil), legal[s]...)
}

// RequiredPermission returns the token needed to move a report into target.
// Pending has none because nothing may move back into it.
func RequiredPermission(target models.ReportStatus) (permission.Token, bool) {
	switch target {
	case models.ReportStatusVerified:
		return permission.ReportVerify, true
	case models.ReportStatusRejected:
		return permission.ReportReject, true
	case models.ReportStatusResolved:
		return permission.ReportResolve, true
	case models.ReportStatusPending:
		return "", false
	}
	return "", false
}

// auditAction maps a target status to its activity log action.
func auditAction(target models.ReportStatus) string {
	switch target {
	case models.ReportStatusVerified:
		return models.ActionReportVerify
	case models.ReportStatusRejected:
		return models.ActionReportReject
	case models.ReportStatusResolved:
		return models.ActionReportResolve
	}
	return ""
}
