package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/reportquery"
)

var validate = validator.New()

// bindJSON parses and validates the request body into dst
func bindJSON(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperror.Validation("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return apperror.FromValidator(err)
	}
	return nil
}

// pageParams reads page and limit with the listing defaults
func pageParams(c *fiber.Ctx) (page, limit int, err error) {
	page, limit = 1, reportquery.DefaultLimit
	if v := strings.TrimSpace(c.Query("page")); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, apperror.Validation("page must be a positive number")
		}
		if page > reportquery.MaxPage {
			return 0, 0, apperror.Validation("page must be at most %d", reportquery.MaxPage)
		}
	}
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, apperror.Validation("limit must be a positive number")
		}
	}
	if limit > reportquery.MaxLimit {
		limit = reportquery.MaxLimit
	}
	return page, limit, nil
}

func pagination(page, limit int, total int64) fiber.Map {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	return fiber.Map{
		"page":        page,
		"limit":       limit,
		"total":       total,
		"total_pages": pages,
	}
}

// paramID parses a positive numeric route parameter
func paramID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("%s must be a positive number", name)
	}
	return id, nil
}

// notFoundOr maps a repository miss to a NotFound error with the given message
func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(format, args...)
	}
	return apperror.Internal("Could not load data", err)
}

func parsePositive(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 0, apperror.Validation("expected a positive number, got %q", v)
	}
	return n, nil
}
