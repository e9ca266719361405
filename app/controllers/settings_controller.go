package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/audit"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/usercontext"
)

type settingsRequest struct {
	SiteTitle               *string `json:"site_title"`
	SiteDescription         *string `json:"site_description"`
	ReportSubmissionEnabled *bool   `json:"report_submission_enabled"`
	PublicMapEnabled        *bool   `json:"public_map_enabled"`
	AutoNotifyReporters     *bool   `json:"auto_notify_reporters"`
	MaxImagesPerReport      *int    `json:"max_images_per_report"`
}

// HandleAdminGetSettings returns the stored runtime settings
func (h *Controller) HandleAdminGetSettings(c *fiber.Ctx) error {
	s, err := h.Repos.Setting.Get()
	if err != nil {
		return apperror.Internal("Could not load settings", err)
	}
	return c.JSON(fiber.Map{"data": s})
}

// HandleAdminUpdateSettings applies a partial settings update
func (h *Controller) HandleAdminUpdateSettings(c *fiber.Ctx) error {
	var req settingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperror.Validation("Invalid request body")
	}
	cur, err := h.Repos.Setting.Get()
	if err != nil {
		return apperror.Internal("Could not load settings", err)
	}

	next := &models.AppSettings{
		SiteTitle:               cur.SiteTitle,
		SiteDescription:         cur.SiteDescription,
		ReportSubmissionEnabled: cur.IsReportSubmissionEnabled(),
		PublicMapEnabled:        cur.IsPublicMapEnabled(),
		AutoNotifyReporters:     cur.ShouldNotifyReporters(),
		MaxImagesPerReport:      cur.GetMaxImagesPerReport(),
	}
	details := map[string]interface{}{}
	if req.SiteTitle != nil {
		next.SiteTitle = *req.SiteTitle
		details["site_title"] = next.SiteTitle
	}
	if req.SiteDescription != nil {
		next.SiteDescription = *req.SiteDescription
		details["site_description"] = next.SiteDescription
	}
	if req.ReportSubmissionEnabled != nil {
		next.ReportSubmissionEnabled = *req.ReportSubmissionEnabled
		details["report_submission_enabled"] = next.ReportSubmissionEnabled
	}
	if req.PublicMapEnabled != nil {
		next.PublicMapEnabled = *req.PublicMapEnabled
		details["public_map_enabled"] = next.PublicMapEnabled
	}
	if req.AutoNotifyReporters != nil {
		next.AutoNotifyReporters = *req.AutoNotifyReporters
		details["auto_notify_reporters"] = next.AutoNotifyReporters
	}
	if req.MaxImagesPerReport != nil {
		next.MaxImagesPerReport = *req.MaxImagesPerReport
		details["max_images_per_report"] = next.MaxImagesPerReport
	}
	if len(details) == 0 {
		return apperror.Validation("Nothing to update")
	}
	if err := next.Validate(); err != nil {
		return apperror.FromValidator(err)
	}
	if err := h.Repos.Setting.Save(next); err != nil {
		return apperror.Internal("Could not save settings", err)
	}

	h.Audit.Record(c.UserContext(), audit.Entry{
		Actor:        usercontext.GetUserContext(c),
		Action:       models.ActionSettingsUpdate,
		Description:  "Settings updated",
		ResourceType: models.ResourceSettings,
		Details:      details,
	})
	return c.JSON(fiber.Map{"data": next})
}
