package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/apperror"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/security"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/session"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/usercontext"
)

// Auth builds per-request principals from bearer tokens.
type Auth struct {
	issuer *security.TokenIssuer
	admins repository.AdminRepository
	users  repository.UserRepository
}

func NewAuth(issuer *security.TokenIssuer, admins repository.AdminRepository, users repository.UserRepository) *Auth {
	return &Auth{issuer: issuer, admins: admins, users: users}
}

// RequireAdmin accepts only tokens of active admins. Permissions come from the cached admin
// snapshot, so a role change is visible within one snapshot lifetime at the latest.
func (a *Auth) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := a.verify(c, security.SubjectAdmin)
		if err != nil {
			return err
		}
		id, err := claims.SubjectID()
		if err != nil {
			return apperror.Unauthenticated("Invalid token")
		}

		snap, err := a.adminSnapshot(id)
		if err != nil {
			return err
		}
		if !snap.IsActive {
			return apperror.Unauthenticated("This account is disabled")
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			Kind:        usercontext.KindAdmin,
			AdminID:     snap.ID,
			Username:    snap.Username,
			Permissions: snap.PermissionSet(),
			IPAddress:   c.IP(),
			UserAgent:   c.Get(fiber.HeaderUserAgent),
		})
		c.Locals(usercontext.KeyTokenClaims, claims)
		return c.Next()
	}
}

// RequireUser accepts only tokens of active reporters
func (a *Auth) RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := a.verify(c, security.SubjectUser)
		if err != nil {
			return err
		}
		id, err := claims.SubjectID()
		if err != nil {
			return apperror.Unauthenticated("Invalid token")
		}

		user, err := a.users.GetByID(id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Unauthenticated("Account no longer exists")
		}
		if err != nil {
			return apperror.Internal("Could not load account", err)
		}
		if !user.IsActive() {
			return apperror.Unauthenticated("This account is disabled")
		}

		usercontext.SetUserContext(c, usercontext.UserContext{
			Kind:      usercontext.KindUser,
			UserID:    user.ID,
			Username:  user.Username,
			IPAddress: c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		})
		c.Locals(usercontext.KeyTokenClaims, claims)
		return c.Next()
	}
}

// RequirePermission must run after RequireAdmin
func RequirePermission(t permission.Token) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !usercontext.GetUserContext(c).HasPermission(t) {
			return apperror.PermissionDenied("You do not have the %s permission", t)
		}
		return c.Next()
	}
}

// TokenClaims returns the verified claims of the current request
func TokenClaims(c *fiber.Ctx) *security.Claims {
	claims, _ := c.Locals(usercontext.KeyTokenClaims).(*security.Claims)
	return claims
}

func (a *Auth) verify(c *fiber.Ctx, kind security.SubjectKind) (*security.Claims, error) {
	token := bearerToken(c)
	if token == "" {
		return nil, apperror.Unauthenticated("Missing bearer token")
	}
	claims, err := a.issuer.Verify(token, kind)
	if err != nil {
		return nil, apperror.Unauthenticated("Invalid or expired token")
	}
	revoked, err := session.IsRevoked(claims.ID)
	if err != nil {
		// Storage outage: keep serving, tokens still expire on their own
		log.Warnf("[Auth] Revocation check failed: %v", err)
	}
	if revoked {
		return nil, apperror.Unauthenticated("Token has been logged out")
	}
	return claims, nil
}

func (a *Auth) adminSnapshot(id uint) (session.AdminSnapshot, error) {
	snap, ok, err := session.GetAdminSnapshot(id)
	if err != nil {
		log.Warnf("[Auth] Snapshot read for admin %d failed: %v", id, err)
	}
	if ok {
		return snap, nil
	}

	gen, genErr := session.AdminGeneration(id)
	if genErr != nil {
		log.Warnf("[Auth] Generation read for admin %d failed: %v", id, genErr)
	}
	admin, err := a.admins.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return session.AdminSnapshot{}, apperror.Unauthenticated("Account no longer exists")
	}
	if err != nil {
		return session.AdminSnapshot{}, apperror.Internal("Could not load account", err)
	}
	snap = session.SnapshotOf(admin)
	if genErr != nil {
		return snap, nil
	}
	snap.Generation = gen
	if err := session.PutAdminSnapshot(snap); err != nil {
		log.Warnf("[Auth] Snapshot write for admin %d failed: %v", id, err)
	}
	return snap, nil
}

func bearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAnyPermission passes when at least one of the tokens is held
func RequireAnyPermission(tokens ...permission.Token) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		for _, t := range tokens {
			if uc.HasPermission(t) {
				return c.Next()
			}
		}
		return apperror.PermissionDenied("You do not have permission for this resource")
	}
}
