package controllers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/audit"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/session"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/usercontext"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/utils"
)

type createAdminRequest struct {
	Username    string   `json:"username" validate:"required,min=3,max=100"`
	Password    string   `json:"password" validate:"required,min=8,max=72"`
	Email       string   `json:"email" validate:"omitempty,email,max=200"`
	FullName    string   `json:"full_name" validate:"max=150"`
	Role        string   `json:"role" validate:"required"`
	Permissions []string `json:"permissions"`
}

type updateAdminRequest struct {
	Email       *string   `json:"email" validate:"omitempty,email,max=200"`
	FullName    *string   `json:"full_name" validate:"omitempty,max=150"`
	Password    *string   `json:"password" validate:"omitempty,min=8,max=72"`
	Role        *string   `json:"role"`
	Permissions *[]string `json:"permissions"`
	IsActive    *bool     `json:"is_active"`
}

// adminResponse is an admin row with its effective permission list
type adminResponse struct {
	ID          uint               `json:"id"`
	Username    string             `json:"username"`
	Email       string             `json:"email"`
	FullName    string             `json:"full_name"`
	AvatarURL   string             `json:"avatar_url,omitempty"`
	Role        string             `json:"role"`
	Permissions []permission.Token `json:"permissions"`
	IsActive    bool               `json:"is_active"`
	LastLoginAt *time.Time         `json:"last_login_at"`
	CreatedBy   *uint              `json:"created_by,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func adminView(a *models.Admin) adminResponse {
	return adminResponse{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		FullName:    a.FullName,
		AvatarURL:   utils.AvatarURL(a.Email, 96),
		Role:        a.Role,
		Permissions: permissionsOf(a),
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// HandleAdminListAdmins lists dashboard accounts
func (h *Controller) HandleAdminListAdmins(c *fiber.Ctx) error {
	page, limit, err := pageParams(c)
	if err != nil {
		return err
	}
	admins, err := h.Repos.Admin.List((page-1)*limit, limit)
	if err != nil {
		return apperror.Internal("Could not list admins", err)
	}
	total, err := h.Repos.Admin.Count()
	if err != nil {
		return apperror.Internal("Could not list admins", err)
	}
	out := make([]adminResponse, 0, len(admins))
	for i := range admins {
		out = append(out, adminView(&admins[i]))
	}
	return c.JSON(fiber.Map{"data": out, "pagination": pagination(page, limit, total)})
}

// HandleAdminCreateAdmin creates a dashboard account
func (h *Controller) HandleAdminCreateAdmin(c *fiber.Ctx) error {
	var req createAdminRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	role, err := permission.ParseRole(req.Role)
	if err != nil {
		return apperror.Validation("%v", err)
	}
	tokens, err := permission.ParseTokens(req.Permissions)
	if err != nil {
		return apperror.Validation("%v", err)
	}

	username := strings.TrimSpace(req.Username)
	if existing, _ := h.Repos.Admin.GetByUsername(username); existing != nil {
		return apperror.Conflict("Username %s is already taken", username)
	}

	admin, err := models.NewAdmin(username, req.Password, role, tokens)
	if err != nil {
		return apperror.Validation("%v", err)
	}
	admin.Email = strings.TrimSpace(req.Email)
	admin.FullName = strings.TrimSpace(req.FullName)
	actor := usercontext.GetUserContext(c)
	admin.CreatedBy = actor.AdminIDPtr()
	if err := admin.Validate(); err != nil {
		return apperror.FromValidator(err)
	}
	if err := h.Repos.Admin.Create(admin); err != nil {
		return apperror.Internal("Could not create the admin", err)
	}

	h.Audit.Record(c.UserContext(), audit.Entry{
		Actor:        actor,
		Action:       models.ActionAdminCreate,
		Description:  fmt.Sprintf("Admin %s created with role %s", admin.Username, admin.Role),
		ResourceType: models.ResourceAdmin,
		ResourceID:   fmt.Sprint(admin.ID),
		Details: map[string]interface{}{
			"role":        admin.Role,
			"permissions": req.Permissions,
		},
	})
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": adminView(admin)})
}

// HandleAdminUpdateAdmin changes profile, role, grant, password or the active flag
func (h *Controller) HandleAdminUpdateAdmin(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateAdminRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	admin, err := h.Repos.Admin.GetByID(uint(id))
	if err != nil {
		return notFoundOr(err, "Admin %d not found", id)
	}
	actor := usercontext.GetUserContext(c)
	wasActiveSuper := admin.IsActive && admin.IsSuperAdmin()
	details := map[string]interface{}{}

	if req.Email != nil {
		admin.Email = strings.TrimSpace(*req.Email)
		details["email"] = admin.Email
	}
	if req.FullName != nil {
		admin.FullName = strings.TrimSpace(*req.FullName)
		details["full_name"] = admin.FullName
	}
	if req.Password != nil {
		if err := admin.SetPassword(*req.Password); err != nil {
			return apperror.Internal("Could not update the password", err)
		}
		details["password"] = "changed"
	}
	if req.IsActive != nil {
		if !*req.IsActive && admin.ID == actor.AdminID {
			return apperror.Validation("You cannot deactivate your own account")
		}
		admin.IsActive = *req.IsActive
		details["is_active"] = admin.IsActive
	}
	if req.Role != nil || req.Permissions != nil {
		if admin.ID == actor.AdminID && req.Role != nil && *req.Role != admin.Role {
			return apperror.Validation("You cannot change your own role")
		}
		if req.Role != nil {
			role, err := permission.ParseRole(*req.Role)
			if err != nil {
				return apperror.Validation("%v", err)
			}
			admin.Role = string(role)
			details["role"] = admin.Role
		}
		tokens := admin.PermissionSet().Tokens()
		if admin.IsSuperAdmin() {
			tokens = nil
		}
		if req.Permissions != nil {
			tokens, err = permission.ParseTokens(*req.Permissions)
			if err != nil {
				return apperror.Validation("%v", err)
			}
			details["permissions"] = *req.Permissions
		}
		if err := admin.SetPermissions(tokens); err != nil {
			return apperror.Validation("%v", err)
		}
	}
	if len(details) == 0 {
		return apperror.Validation("Nothing to update")
	}
	if err := admin.Validate(); err != nil {
		return apperror.FromValidator(err)
	}

	if wasActiveSuper && !(admin.IsActive && admin.IsSuperAdmin()) {
		if err := h.keepOneSuperAdmin(); err != nil {
			return err
		}
	}
	if err := h.Repos.Admin.Update(admin); err != nil {
		return apperror.Internal("Could not update the admin", err)
	}
	if err := session.InvalidateAdmin(admin.ID); err != nil {
		log.Warnf("[Admin] Could not invalidate cached admin %d: %v", admin.ID, err)
	}

	h.Audit.Record(c.UserContext(), audit.Entry{
		Actor:        actor,
		Action:       models.ActionAdminUpdate,
		Description:  fmt.Sprintf("Admin %s updated", admin.Username),
		ResourceType: models.ResourceAdmin,
		ResourceID:   fmt.Sprint(admin.ID),
		Details:      details,
	})
	return c.JSON(fiber.Map{"data": adminView(admin)})
}

// HandleAdminDeleteAdmin removes a dashboard account
func (h *Controller) HandleAdminDeleteAdmin(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	actor := usercontext.GetUserContext(c)
	if uint(id) == actor.AdminID {
		return apperror.Validation("You cannot delete your own account")
	}
	admin, err := h.Repos.Admin.GetByID(uint(id))
	if err != nil {
		return notFoundOr(err, "Admin %d not found", id)
	}
	if admin.IsActive && admin.IsSuperAdmin() {
		if err := h.keepOneSuperAdmin(); err != nil {
			return err
		}
	}
	refs, err := h.Repos.Report.CountVerifiedBy(c.UserContext(), admin.ID)
	if err != nil {
		return apperror.Internal("Could not check reports of the admin", err)
	}
	if refs > 0 {
		return adminReferenced(admin, refs)
	}
	if err := h.Repos.Admin.Delete(admin.ID); err != nil {
		if errors.Is(err, repository.ErrAdminReferenced) {
			return adminReferenced(admin, refs)
		}
		return notFoundOr(err, "Admin %d not found", id)
	}
	if err := session.InvalidateAdmin(admin.ID); err != nil {
		log.Warnf("[Admin] Could not invalidate cached admin %d: %v", admin.ID, err)
	}

	h.Audit.Record(c.UserContext(), audit.Entry{
		Actor:        actor,
		Action:       models.ActionAdminDelete,
		Description:  fmt.Sprintf("Admin %s deleted", admin.Username),
		ResourceType: models.ResourceAdmin,
		ResourceID:   fmt.Sprint(admin.ID),
		Severity:     models.ActivitySeverityCritical,
		Details:      map[string]interface{}{"role": admin.Role},
	})
	return c.SendStatus(fiber.StatusNoContent)
}

func adminReferenced(admin *models.Admin, refs int64) error {
	if refs > 0 {
		return apperror.Conflict("Admin %s verified %d report(s) and cannot be deleted; set is_active=false instead", admin.Username, refs)
	}
	return apperror.Conflict("Admin %s verified reports and cannot be deleted; set is_active=false instead", admin.Username)
}

// keepOneSuperAdmin refuses a change that would leave no active super admin
func (h *Controller) keepOneSuperAdmin() error {
	n, err := h.Repos.Admin.CountActiveSuperAdmins()
	if err != nil {
		return apperror.Internal("Could not check super admins", err)
	}
	if n <= 1 {
		return apperror.Conflict("At least one active super admin must remain")
	}
	return nil
}
