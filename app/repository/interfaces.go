package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/reportquery"
)

// StatusChange is the set of columns written together with a status swap.
type StatusChange struct {
	To         models.ReportStatus
	At         time.Time
	VerifiedBy *uint
	VerifiedAt *time.Time
	ResolvedAt *time.Time
	AdminNotes *string
}

// ReportPatch holds the admin-editable fields. Nil means unchanged.
type ReportPatch struct {
	Severity   *models.Severity
	Priority   *models.Priority
	AdminNotes *string
}

// ReportRepository defines the storage operations for road reports.
// Missing rows are reported as gorm.ErrRecordNotFound by every implementation.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	GetByTrackingCode(ctx context.Context, code string) (*models.Report, error)
	List(ctx context.Context, f reportquery.Filter) ([]models.Report, int64, error)
	ListAll(ctx context.Context, f reportquery.Filter) ([]models.Report, error)
	CompareAndSwapStatus(ctx context.Context, id string, from models.ReportStatus, change StatusChange) (bool, error)
	Update(ctx context.Context, id string, patch ReportPatch) error
	UpdateImages(ctx context.Context, id string, images datatypes.JSON) error
	Delete(ctx context.Context, id string) error
	TrackingCodeExists(ctx context.Context, code string) (bool, error)
	CountVerifiedBy(ctx context.Context, adminID uint) (int64, error)
}

// ErrAdminReferenced is returned when an admin cannot be removed because reports name them as verifier.
var ErrAdminReferenced = errors.New("admin is referenced by verified reports")

// AdminRepository defines the interface for admin account operations
type AdminRepository interface {
	Create(admin *models.Admin) error
	GetByID(id uint) (*models.Admin, error)
	GetByUsername(username string) (*models.Admin, error)
	List(offset, limit int) ([]models.Admin, error)
	Count() (int64, error)
	CountActiveSuperAdmins() (int64, error)
	Update(admin *models.Admin) error
	Delete(id uint) error
	UpdateLastLogin(id uint, at time.Time) error
}

// UserRepository defines the interface for reporter account operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	UsernameOrEmailExists(username, email string) (bool, error)
	Update(user *models.User) error
	UpdateLastLogin(id uint, at time.Time) error
}

// ActivityFilter narrows an audit listing. Zero values mean no constraint.
type ActivityFilter struct {
	AdminID      *uint
	Action       string
	ResourceType string
	ResourceID   string
	Severity     string
	From         *time.Time
	To           *time.Time
	Offset       int
	Limit        int
}

// ActivityLogRepository is append-only: there is no update or delete.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, f ActivityFilter) ([]models.ActivityLog, int64, error)
}

// SettingRepository defines the interface for application settings
type SettingRepository interface {
	Get() (*models.AppSettings, error)
	Save(settings *models.AppSettings) error
}

// NewsRepository defines the interface for news-related operations
type NewsRepository interface {
	Create(news *models.News) error
	GetByID(id uint64) (*models.News, error)
	GetBySlug(slug string) (*models.News, error)
	GetPublished(offset, limit int) ([]models.News, error)
	GetAll(offset, limit int) ([]models.News, error)
	Update(news *models.News) error
	Delete(id uint64) error
	Count() (int64, error)
	SlugExists(slug string) (bool, error)
	SlugExistsExceptID(slug string, id uint64) (bool, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Report      ReportRepository
	Admin       AdminRepository
	User        UserRepository
	ActivityLog ActivityLogRepository
	Setting     SettingRepository
	News        NewsRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Report:      NewReportRepository(db),
		Admin:       NewAdminRepository(db),
		User:        NewUserRepository(db),
		ActivityLog: NewActivityLogRepository(db),
		Setting:     NewSettingRepository(db),
		News:        NewNewsRepository(db),
	}
}
