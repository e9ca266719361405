package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/audit"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/middleware"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/security"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/session"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/usercontext"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=150"`
	Username     string `json:"username" validate:"required,min=3,max=100,alphanum"`
	Email        string `json:"email" validate:"required,email,max=200"`
	Phone        string `json:"phone" validate:"max=50"`
	Password     string `json:"password" validate:"required,min=6,max=72"`
	CaptchaToken string `json:"captcha_token"`
}

func tokenResponse(token string, claims *security.Claims) fiber.Map {
	return fiber.Map{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": claims.ExpiresAt.Time.UTC().Format(time.RFC3339),
	}
}

// anonymousActor describes a caller that has not authenticated yet
func anonymousActor(c *fiber.Ctx, username string) usercontext.UserContext {
	return usercontext.UserContext{
		Username:  username,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

// HandleAdminLogin exchanges admin credentials for a bearer token
func (h *Controller) HandleAdminLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	username := strings.TrimSpace(req.Username)

	admin, err := h.Repos.Admin.GetByUsername(username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.Internal("Could not sign in", err)
	}
	if admin == nil || !admin.CheckPassword(req.Password) {
		h.Audit.Record(c.UserContext(), audit.Entry{
			Actor:        anonymousActor(c, username),
			Action:       models.ActionLoginFailed,
			Description:  "Failed admin login for " + username,
			ResourceType: models.ResourceSession,
			Severity:     models.ActivitySeverityWarning,
		})
		return apperror.Unauthenticated("Invalid username or password")
	}
	if !admin.IsActive {
		return apperror.Unauthenticated("This account is disabled")
	}

	token, claims, err := h.Issuer.Issue(security.SubjectAdmin, admin.ID, admin.Username)
	if err != nil {
		return apperror.Internal("Could not sign in", err)
	}
	if err := h.Repos.Admin.UpdateLastLogin(admin.ID, time.Now().UTC()); err != nil {
		log.Warnf("[Auth] Could not store last login of admin %d: %v", admin.ID, err)
	}
	// cached by the auth middleware on first use
	snap := session.SnapshotOf(admin)

	actor := usercontext.UserContext{
		Kind:        usercontext.KindAdmin,
		AdminID:     admin.ID,
		Username:    admin.Username,
		Permissions: snap.PermissionSet(),
		IPAddress:   c.IP(),
		UserAgent:   c.Get(fiber.HeaderUserAgent),
	}
	h.Audit.Record(c.UserContext(), audit.Entry{
		Actor:        actor,
		Action:       models.ActionLogin,
		Description:  "Admin " + admin.Username + " signed in",
		ResourceType: models.ResourceSession,
		ResourceID:   claims.ID,
	})

	resp := tokenResponse(token, claims)
	resp["admin"] = adminView(admin)
	return c.JSON(resp)
}

// HandleAdminLogout revokes the presented admin token
func (h *Controller) HandleAdminLogout(c *fiber.Ctx) error {
	claims := middleware.TokenClaims(c)
	if claims == nil {
		return apperror.Unauthenticated("Missing bearer token")
	}
	if err := session.Revoke(claims.ID, claims.Remaining()); err != nil {
		return apperror.Internal("Could not sign out", err)
	}
	h.Audit.Record(c.UserContext(), audit.Entry{
		Actor:        usercontext.GetUserContext(c),
		Action:       models.ActionLogout,
		Description:  "Admin signed out",
		ResourceType: models.ResourceSession,
		ResourceID:   claims.ID,
	})
	return c.JSON(fiber.Map{"message": "Signed out"})
}

// HandleAdminMe returns the signed-in admin with the resolved permission list
func (h *Controller) HandleAdminMe(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	admin, err := h.Repos.Admin.GetByID(uc.AdminID)
	if err != nil {
		return notFoundOr(err, "Admin not found")
	}
	return c.JSON(fiber.Map{"admin": adminView(admin)})
}

// HandleUserRegister creates a reporter account and signs it in
func (h *Controller) HandleUserRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := h.Captcha.Verify(c.UserContext(), req.CaptchaToken); err != nil {
		log.Infof("[Auth] Captcha rejected for %s: %v", req.Username, err)
		return apperror.Validation("Captcha verification failed")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := h.Repos.User.UsernameOrEmailExists(req.Username, email)
	if err != nil {
		return apperror.Internal("Could not create the account", err)
	}
	if exists {
		return apperror.Conflict("Username or email is already registered")
	}

	user, err := models.CreateUser(strings.TrimSpace(req.Name), req.Username, email, strings.TrimSpace(req.Phone), req.Password)
	if err != nil {
		return apperror.FromValidator(err)
	}
	if err := h.Repos.User.Create(user); err != nil {
		return apperror.Internal("Could not create the account", err)
	}

	token, claims, err := h.Issuer.Issue(security.SubjectUser, user.ID, user.Username)
	if err != nil {
		return apperror.Internal("Could not sign in", err)
	}
	resp := tokenResponse(token, claims)
	resp["user"] = user
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// HandleUserLogin accepts username or email
func (h *Controller) HandleUserLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	login := strings.TrimSpace(req.Username)

	var user *models.User
	var err error
	if strings.Contains(login, "@") {
		user, err = h.Repos.User.GetByEmail(strings.ToLower(login))
	} else {
		user, err = h.Repos.User.GetByUsername(login)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.Internal("Could not sign in", err)
	}
	if user == nil || !user.CheckPassword(req.Password) {
		return apperror.Unauthenticated("Invalid username or password")
	}
	if !user.IsActive() {
		return apperror.Unauthenticated("This account is disabled")
	}

	token, claims, err := h.Issuer.Issue(security.SubjectUser, user.ID, user.Username)
	if err != nil {
		return apperror.Internal("Could not sign in", err)
	}
	if err := h.Repos.User.UpdateLastLogin(user.ID, time.Now().UTC()); err != nil {
		log.Warnf("[Auth] Could not store last login of user %d: %v", user.ID, err)
	}
	resp := tokenResponse(token, claims)
	resp["user"] = user
	return c.JSON(resp)
}

// HandleUserLogout revokes the presented reporter token
func (h *Controller) HandleUserLogout(c *fiber.Ctx) error {
	claims := middleware.TokenClaims(c)
	if claims == nil {
		return apperror.Unauthenticated("Missing bearer token")
	}
	if err := session.Revoke(claims.ID, claims.Remaining()); err != nil {
		return apperror.Internal("Could not sign out", err)
	}
	return c.JSON(fiber.Map{"message": "Signed out"})
}
