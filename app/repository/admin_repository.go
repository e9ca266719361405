package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/permission"
)

// adminRepository implements the AdminRepository interface
type adminRepository struct {
	db *gorm.DB
}

// NewAdminRepository creates a new admin repository instance
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{db: db}
}

// Create creates a new admin in the database
func (r *adminRepository) Create(admin *models.Admin) error {
	return r.db.Create(admin).Error
}

// GetByID retrieves an admin by id
func (r *adminRepository) GetByID(id uint) (*models.Admin, error) {
	var admin models.Admin
	err := r.db.First(&admin, id).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// GetByUsername retrieves an admin by username
func (r *adminRepository) GetByUsername(username string) (*models.Admin, error) {
	var admin models.Admin
	err := r.db.Where("username = ?", username).First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// List retrieves admins ordered by id with pagination
func (r *adminRepository) List(offset, limit int) ([]models.Admin, error) {
	var admins []models.Admin
	err := r.db.Order("id ASC").Offset(offset).Limit(limit).Find(&admins).Error
	return admins, err
}

// Count returns the total number of admins
func (r *adminRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Admin{}).Count(&count).Error
	return count, err
}

// CountActiveSuperAdmins returns how many active super admins exist
func (r *adminRepository) CountActiveSuperAdmins() (int64, error) {
	var count int64
	err := r.db.Model(&models.Admin{}).
		Where("role = ? AND is_active = ?", string(permission.RoleSuperAdmin), true).
		Count(&count).Error
	return count, err
}

// Update saves every column of the admin
func (r *adminRepository) Update(admin *models.Admin) error {
	return r.db.Save(admin).Error
}

// Delete removes an admin by id. Admins still named as verifier on a report are kept
// and ErrAdminReferenced is returned; deactivate them instead.
func (r *adminRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.Report{}).Where("verified_by = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrAdminReferenced
		}
		res := tx.Delete(&models.Admin{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// UpdateLastLogin stamps the last successful login
func (r *adminRepository) UpdateLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Admin{}).Where("id = ?", id).Update("last_login_at", at).Error
}
