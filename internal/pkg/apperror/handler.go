package apperror

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Respond writes err in the API error shape.
func Respond(c *fiber.Ctx, err error) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == KindInternal && e.Err != nil {
			log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), e.Err)
		}
		return c.Status(HTTPStatus(e.Kind)).JSON(fiber.Map{"error": string(e.Kind), "message": e.Message})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fiberKind(fe.Code), "message": fe.Message})
	}

	log.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   string(KindInternal),
		"message": "Something went wrong, please try again later",
	})
}

// ErrorHandler is installed as the fiber.Config ErrorHandler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return Respond(c, err)
}

func fiberKind(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return string(KindValidation)
	case fiber.StatusUnauthorized:
		return string(KindUnauthenticated)
	case fiber.StatusForbidden:
		return string(KindPermissionDenied)
	case fiber.StatusNotFound:
		return string(KindNotFound)
	case fiber.StatusConflict:
		return string(KindConflict)
	case fiber.StatusTooManyRequests:
		return "too_many_requests"
	case fiber.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	}
	return string(KindInternal)
}
