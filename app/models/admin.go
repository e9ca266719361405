package models

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/datatypes"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
)

// Admin is a dashboard account. Super admins implicitly hold every permission.
type Admin struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"uniqueIndex;size:100;not null" json:"username" validate:"required,min=3,max=100"`
	Email        string         `gorm:"size:200" json:"email" validate:"omitempty,email,max=200"`
	FullName     string         `gorm:"size:150" json:"full_name" validate:"max=150"`
	PasswordHash string         `gorm:"type:text;not null" json:"-"`
	Role         string         `gorm:"size:20;not null" json:"role" validate:"required,oneof=admin super_admin"`
	Permissions  datatypes.JSON `json:"permissions"`
	IsActive     bool           `gorm:"not null" json:"is_active"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedBy    *uint          `json:"created_by,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Admin model
func (Admin) TableName() string {
	return "admins"
}

// NewAdmin builds an active admin with a hashed password and a checked permission grant.
func NewAdmin(username, password string, role permission.Role, tokens []permission.Token) (*Admin, error) {
	a := &Admin{
		Username: username,
		Role:     string(role),
		IsActive: true,
	}
	if err := a.SetPassword(password); err != nil {
		return nil, err
	}
	if err := a.SetPermissions(tokens); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Admin) Validate() error {
	v := validator.New()

	return v.Struct(a)
}

// SetPassword hashes and sets a new password for the admin
func (a *Admin) SetPassword(password string) error {
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	a.PasswordHash = hashed
	return nil
}

// CheckPassword verifies the provided password against the stored hash
func (a *Admin) CheckPassword(password string) bool {
	return CheckPasswordHash(password, a.PasswordHash)
}

// SetPermissions stores tokens after checking they are grantable for the admin's role.
func (a *Admin) SetPermissions(tokens []permission.Token) error {
	if err := permission.ValidateGrant(permission.Role(a.Role), tokens); err != nil {
		return err
	}
	list := make([]string, 0, len(tokens))
	for _, t := range tokens {
		list = append(list, string(t))
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	a.Permissions = datatypes.JSON(raw)
	return nil
}

// PermissionSet resolves the effective permissions from the current row.
func (a *Admin) PermissionSet() permission.Set {
	return permission.FromJSON(permission.Role(a.Role), a.Permissions)
}

// IsSuperAdmin reports whether the admin has the super_admin role
func (a *Admin) IsSuperAdmin() bool {
	return a.Role == string(permission.RoleSuperAdmin)
}
