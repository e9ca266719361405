package repository

import (
	"gorm.io/gorm"

	"github.com/bantaydalan/bantaydalan-api/app/models"
)

// newsRepository implements the NewsRepository interface
type newsRepository struct {
	db *gorm.DB
}

// NewNewsRepository creates a new news repository instance
func NewNewsRepository(db *gorm.DB) NewsRepository {
	return &newsRepository{db: db}
}

// Create creates a new news article in the database
func (r *newsRepository) Create(news *models.News) error {
	return r.db.Create(news).Error
}

// GetByID retrieves a news article by its ID
func (r *newsRepository) GetByID(id uint64) (*models.News, error) {
	var news models.News
	err := r.db.Preload("Author").First(&news, id).Error
	if err != nil {
		return nil, err
	}
	return &news, nil
}

// GetBySlug retrieves a news article by its slug
func (r *newsRepository) GetBySlug(slug string) (*models.News, error) {
	var news models.News
	err := r.db.Preload("Author").Where("slug = ?", slug).First(&news).Error
	if err != nil {
		return nil, err
	}
	return &news, nil
}

// GetPublished retrieves published news articles with pagination
func (r *newsRepository) GetPublished(offset, limit int) ([]models.News, error) {
	var news []models.News
	err := r.db.Preload("Author").Where("published = ?", true).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).Find(&news).Error
	return news, err
}

// GetAll retrieves all news articles with pagination
func (r *newsRepository) GetAll(offset, limit int) ([]models.News, error) {
	var news []models.News
	err := r.db.Preload("Author").Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).Find(&news).Error
	return news, err
}

// Update updates an existing news article in the database
func (r *newsRepository) Update(news *models.News) error {
	return r.db.Omit("Author").Save(news).Error
}

// Delete removes a news article by its ID
func (r *newsRepository) Delete(id uint64) error {
	res := r.db.Delete(&models.News{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Count returns the total number of news articles
func (r *newsRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.News{}).Count(&count).Error
	return count, err
}

// SlugExists checks if a slug already exists
func (r *newsRepository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.db.Model(&models.News{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

// SlugExistsExceptID checks if a slug exists on any article other than id
func (r *newsRepository) SlugExistsExceptID(slug string, id uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.News{}).Where("slug = ? AND id != ?", slug, id).Count(&count).Error
	return count > 0, err
}
