package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
)

// HandleAdminActivityLogs lists audit entries newest first
func (h *Controller) HandleAdminActivityLogs(c *fiber.Ctx) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	f := repository.ActivityFilter{
		Action:       strings.TrimSpace(c.Query("action")),
		ResourceType: strings.TrimSpace(c.Query("resource_type")),
		ResourceID:   strings.TrimSpace(c.Query("resource_id")),
		Severity:     strings.TrimSpace(c.Query("severity")),
		Offset:       (page - 1) * limit,
		Limit:        limit,
	}
	if v := strings.TrimSpace(c.Query("admin_id")); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return apperror.Validation("admin_id must be a number")
		}
		aid := uint(id)
		f.AdminID = &aid
	}
	if f.From, err = queryTime(c, "from"); err != nil {
		return err
	}
	if f.To, err = queryTime(c, "to"); err != nil {
		return err
	}

	entries, total, err := h.Audit.List(c.UserContext(), f)
	if err != nil {
		return apperror.Internal("Could not list activity logs", err)
	}
	return c.JSON(fiber.Map{"data": entries, "pagination": pagination(page, limit, total)})
}

func queryTime(c *fiber.Ctx, name string) (*time.Time, error) {
	v := strings.TrimSpace(c.Query(name))
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperror.Validation("%s must be an RFC3339 timestamp", name)
	}
	return &t, nil
}
