package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Photo struct {
	ID              string  `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt       int64   `gorm:"autoCreateTime:milli;index:gallery_created,priority:2" json:"created_at"`
	GalleryID       string  `gorm:"type:varchar(36);not null;index:gallery_created,priority:1;index:gallery_username,priority:1" json:"gallery_id"`
	Gallery         Gallery `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Username        string  `gorm:"type:varchar(100);not null;index:gallery_username,priority:2" json:"username"`
	ImageURL        string  `gorm:"type:varchar(1000);not null" json:"image_url"`
	StoragePath     string  `gorm:"type:varchar(500)" json:"-"`
	Description     string  `gorm:"type:text" json:"description"`
	OwnerIdentifier string  `gorm:"type:varchar(64);index" json:"owner_identifier"`
}

func PhotoCreate(db *gorm.DB, p *Photo) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return db.Omit(clause.Associations).Create(p).Error
}

func PhotoByID(db *gorm.DB, id string) (*Photo, error) {
	p := Photo{}
	result := db.Where("id = ?", id).Limit(1).Find(&p)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &p, nil
}

// PhotosByGallery returns the newest photos first
func PhotosByGallery(db *gorm.DB, galleryID string) ([]Photo, error) {
	result := []Photo{}
	err := db.Where("gallery_id = ?", galleryID).Order("created_at DESC, id").Find(&result).Error
	return result, err
}

// PhotoByGalleryAndUsername returns the newest photo uploaded under username
func PhotoByGalleryAndUsername(db *gorm.DB, galleryID, username string) (*Photo, error) {
	p := Photo{}
	result := db.
		Where("gallery_id = ? AND username = ?", galleryID, username).
		Order("created_at DESC").
		Limit(1).
		Find(&p)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &p, nil
}
