package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/lifecycle"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/reportquery"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/shortener"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/usercontext"
)

type statusRequest struct {
	Status     string  `json:"status"`
	AdminNotes *string `json:"adminNotes"`
}

type updateRequest struct {
	Severity   *string `json:"severity"`
	Priority   *string `json:"priority"`
	AdminNotes *string `json:"adminNotes"`
}

// publicReport is the projection shown to anonymous callers. It never carries reporter data.
type publicReport struct {
	ID           string              `json:"id"`
	TrackingCode string              `json:"tracking_code"`
	Type         models.ReportType   `json:"type"`
	Status       models.ReportStatus `json:"status"`
	Severity     models.Severity     `json:"severity"`
	Location     models.Location     `json:"location"`
	Description  string              `json:"description"`
	Images       []models.Attachment `json:"images"`
	VerifiedAt   *time.Time          `json:"verified_at,omitempty"`
	ResolvedAt   *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

func toPublic(r *models.Report) publicReport {
	images, err := r.Attachments()
	if err != nil {
		images = []models.Attachment{}
	}
	// inline payloads are not served publicly
	for i := range images {
		images[i].Data = ""
	}
	return publicReport{
		ID:           r.ID,
		TrackingCode: r.TrackingCode,
		Type:         r.Type,
		Status:       r.Status,
		Severity:     r.Severity,
		Location:     r.Location,
		Description:  r.Description,
		Images:       images,
		VerifiedAt:   r.VerifiedAt,
		ResolvedAt:   r.ResolvedAt,
		CreatedAt:    r.CreatedAt,
	}
}

func reportList(reports []models.Report, f reportquery.Filter, total int64) fiber.Map {
	if reports == nil {
		reports = []models.Report{}
	}
	return fiber.Map{
		"data":       reports,
		"pagination": pagination(f.Page, f.PageSize(), total),
	}
}

// HandleSubmitReport creates a pending report for the signed-in reporter
func (h *Controller) HandleSubmitReport(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	var req lifecycle.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}

	user, err := h.Repos.User.GetByID(uc.UserID)
	if err != nil {
		return notFoundOr(err, "User not found")
	}
	reporter := user.Ref()
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		reporter.Phone = phone
	}

	report, err := h.Intake.Submit(c.UserContext(), req, reporter, uc)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": report})
}

// HandleMyReports lists the reports submitted by the signed-in reporter
func (h *Controller) HandleMyReports(c *fiber.Ctx) error {
	f, err := reportquery.Parse(c.Queries())
	if err != nil {
		return err
	}
	uid := usercontext.GetUserID(c)
	f.ReporterID = &uid

	reports, total, err := h.Repos.Report.List(c.UserContext(), f)
	if err != nil {
		return apperror.Internal("Could not list reports", err)
	}
	return c.JSON(reportList(reports, f, total))
}

// HandlePublicMap serves verified and resolved reports for the public map
func (h *Controller) HandlePublicMap(c *fiber.Ctx) error {
	if !h.Settings().IsPublicMapEnabled() {
		return apperror.PermissionDenied("The public map is disabled")
	}
	q := c.Queries()
	delete(q, "search")
	delete(q, "priority")
	f, err := reportquery.Parse(q)
	if err != nil {
		return err
	}
	// only public statuses, whatever was asked for
	public := make([]models.ReportStatus, 0, 2)
	for _, st := range []models.ReportStatus{models.ReportStatusVerified, models.ReportStatusResolved} {
		if len(f.Statuses) == 0 || containsStatus(f.Statuses, st) {
			public = append(public, st)
		}
	}
	if len(public) == 0 {
		return c.JSON(fiber.Map{"data": []publicReport{}, "pagination": pagination(f.Page, f.PageSize(), 0)})
	}
	f.Statuses = public

	reports, total, err := h.Repos.Report.List(c.UserContext(), f)
	if err != nil {
		return apperror.Internal("Could not list reports", err)
	}
	out := make([]publicReport, 0, len(reports))
	for i := range reports {
		out = append(out, toPublic(&reports[i]))
	}
	return c.JSON(fiber.Map{"data": out, "pagination": pagination(f.Page, f.PageSize(), total)})
}

func containsStatus(list []models.ReportStatus, st models.ReportStatus) bool {
	for _, s := range list {
		if s == st {
			return true
		}
	}
	return false
}

// HandleTrackReport returns the public status of a report by tracking code
func (h *Controller) HandleTrackReport(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Params("code"))
	if !shortener.IsTrackingCode(code) {
		return apperror.Validation("Invalid tracking code")
	}
	report, err := h.Repos.Report.GetByTrackingCode(c.UserContext(), code)
	if err != nil {
		return notFoundOr(err, "No report with tracking code %s", code)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"tracking_code": report.TrackingCode,
		"type":          report.Type,
		"status":        report.Status,
		"address":       report.Location.Address,
		"created_at":    report.CreatedAt,
		"updated_at":    report.UpdatedAt,
		"verified_at":   report.VerifiedAt,
		"resolved_at":   report.ResolvedAt,
	}})
}

// HandleAdminListReports lists reports with the full filter set
func (h *Controller) HandleAdminListReports(c *fiber.Ctx) error {
	f, err := reportquery.Parse(c.Queries())
	if err != nil {
		return err
	}
	reports, total, err := h.Repos.Report.List(c.UserContext(), f)
	if err != nil {
		return apperror.Internal("Could not list reports", err)
	}
	return c.JSON(reportList(reports, f, total))
}

// HandleAdminGetReport returns one report with its allowed next statuses
func (h *Controller) HandleAdminGetReport(c *fiber.Ctx) error {
	id := c.Params("id")
	report, err := h.Repos.Report.GetByID(c.UserContext(), id)
	if err != nil {
		return notFoundOr(err, "Report %s not found", id)
	}

	uc := usercontext.GetUserContext(c)
	next := []models.ReportStatus{}
	for _, st := range lifecycle.NextStatuses(report.Status) {
		if tok, ok := lifecycle.RequiredPermission(st); ok && uc.HasPermission(tok) {
			next = append(next, st)
		}
	}
	return c.JSON(fiber.Map{"data": report, "allowed_transitions": next})
}

// HandleAdminChangeStatus runs a status change through the gate
func (h *Controller) HandleAdminChangeStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	res, err := h.Gate.Transition(c.UserContext(), lifecycle.TransitionRequest{
		ReportID: c.Params("id"),
		Target:   req.Status,
		Notes:    req.AdminNotes,
		Actor:    usercontext.GetUserContext(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":    res.Report,
		"from":    res.From,
		"to":      res.To,
		"changed": res.Changed,
	})
}

// HandleAdminUpdateReport edits severity, priority and admin notes
func (h *Controller) HandleAdminUpdateReport(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	report, err := h.Gate.Update(c.UserContext(), c.Params("id"), lifecycle.UpdateRequest{
		Severity:   req.Severity,
		Priority:   req.Priority,
		AdminNotes: req.AdminNotes,
	}, usercontext.GetUserContext(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// HandleAdminDeleteReport removes a report
func (h *Controller) HandleAdminDeleteReport(c *fiber.Ctx) error {
	if err := h.Gate.Delete(c.UserContext(), c.Params("id"), usercontext.GetUserContext(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAdminStats aggregates the filtered report set
func (h *Controller) HandleAdminStats(c *fiber.Ctx) error {
	q := c.Queries()
	days := 30
	if v := strings.TrimSpace(q["days"]); v != "" {
		n, err := parsePositive(v)
		if err != nil {
			return apperror.Validation("days must be a positive number")
		}
		days = n
	}
	delete(q, "days")
	f, err := reportquery.Parse(q)
	if err != nil {
		return err
	}
	summary, err := h.Stats.Summary(c.UserContext(), f, days)
	if err != nil {
		return apperror.Internal("Could not compute statistics", err)
	}
	return c.JSON(fiber.Map{"data": summary})
}

// permissionsOf lists the tokens an admin effectively holds
func permissionsOf(a *models.Admin) []permission.Token {
	return a.PermissionSet().Tokens()
}
