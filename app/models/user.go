package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

// User is a reporter account used by the mobile client.
type User struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:150" json:"name" validate:"required,min=2,max=150"`
	Username    string     `gorm:"uniqueIndex;size:100;not null" json:"username" validate:"required,min=3,max=100,alphanum"`
	Email       string     `gorm:"uniqueIndex;size:200;not null" json:"email" validate:"required,email,min=5,max=200"`
	Phone       string     `gorm:"size:50" json:"phone" validate:"max=50"`
	Password    string     `gorm:"type:text" json:"-" validate:"required,min=6"`
	Status      string     `gorm:"size:50;not null" json:"status" validate:"oneof=active inactive disabled"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds an active reporter with a hashed password.
func CreateUser(name, username, email, phone, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:     name,
		Username: username,
		Email:    email,
		Phone:    phone,
		Password: pw,
		Status:   STATUS_ACTIVE,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// IsActive reports whether the user status is active
func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// Ref returns the denormalized identity stored on the user's reports.
func (u *User) Ref() ReporterRef {
	id := u.ID
	return ReporterRef{
		ID:       &id,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		Phone:    u.Phone,
	}
}
