package models

import (
	"errors"
	"strings"

	"humorize/caption"
	"humorize/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ShareCodeLength = 6
	AdminCodeLength = 8

	maxCodeAttempts = 5
)

// generates share and admin codes, replaced in tests
var newCode = utils.RandCode

type Gallery struct {
	ID                string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt         int64             `gorm:"autoCreateTime:milli" json:"created_at"`
	Name              string            `gorm:"type:varchar(300);not null" json:"name"`
	ShareCode         string            `gorm:"type:varchar(16);not null;index:uniq_share_code,unique" json:"share_code"`
	AdminCode         string            `gorm:"type:varchar(16);not null;index:uniq_admin_code,unique" json:"-"`
	CreatorIdentifier string            `gorm:"type:varchar(64);index" json:"-"`
	CreatorGoogleID   string            `gorm:"type:varchar(128);index" json:"-"`
	CreatorEmail      string            `gorm:"type:varchar(150)" json:"-"`
	Settings          *caption.Settings `gorm:"serializer:json" json:"settings,omitempty"`
	Photos            []Photo           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Creator identifies who creates a gallery: always the pseudo-identity, plus the signed-in user if any
type Creator struct {
	Identifier string
	User       *User
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}

// GalleryCreate inserts a new gallery with fresh codes, retrying when a code collides
func GalleryCreate(db *gorm.DB, name string, creator Creator, settings *caption.Settings) (*Gallery, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		g := Gallery{
			ID:                uuid.NewString(),
			Name:              name,
			ShareCode:         newCode(ShareCodeLength),
			AdminCode:         newCode(AdminCodeLength),
			CreatorIdentifier: creator.Identifier,
			Settings:          settings,
		}
		if creator.User.SignedIn() {
			g.CreatorGoogleID = creator.User.ID
			g.CreatorEmail = creator.User.Email
		}
		err := db.Create(&g).Error
		if err == nil {
			return &g, nil
		}
		if !isDuplicateKey(err) {
			return nil, err
		}
	}
	return nil, ErrCodeGeneration
}

func galleryBy(db *gorm.DB, query string, args ...interface{}) (*Gallery, error) {
	g := Gallery{}
	result := db.Where(query, args...).Limit(1).Find(&g)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &g, nil
}

func GalleryByID(db *gorm.DB, id string) (*Gallery, error) {
	return galleryBy(db, "id = ?", id)
}

// GalleryByShareCode finds the gallery to join. The code is normalized first.
func GalleryByShareCode(db *gorm.DB, shareCode string) (*Gallery, error) {
	code := utils.NormalizeCode(shareCode)
	if code == "" {
		return nil, ErrNotFound
	}
	return galleryBy(db, "share_code = ?", code)
}

// GalleriesByCreator lists galleries created by the signed-in user or by the pseudo-identity
func GalleriesByCreator(db *gorm.DB, creator Creator) ([]Gallery, error) {
	result := []Gallery{}
	tx := db.Order("created_at DESC")
	switch {
	case creator.User.SignedIn() && creator.Identifier != "":
		tx = tx.Where("creator_google_id = ? OR creator_identifier = ?", creator.User.ID, creator.Identifier)
	case creator.User.SignedIn():
		tx = tx.Where("creator_google_id = ?", creator.User.ID)
	case creator.Identifier != "":
		tx = tx.Where("creator_identifier = ?", creator.Identifier)
	default:
		return result, nil
	}
	return result, tx.Find(&result).Error
}

// AdminGrant proves the admin code of a gallery was checked against the database.
// It can only be obtained from VerifyAdminCode.
type AdminGrant struct {
	galleryID string
	code      string
}

func (g *AdminGrant) GalleryID() string { return g.galleryID }
func (g *AdminGrant) Code() string      { return g.code }

// VerifyAdminCode checks code against the stored admin code. A mismatch is ErrNotAuthorized.
func VerifyAdminCode(db *gorm.DB, galleryID, code string) (*AdminGrant, error) {
	code = utils.NormalizeCode(code)
	if code == "" {
		return nil, ErrNotAuthorized
	}
	var count int64
	err := db.Model(&Gallery{}).Where("id = ? AND admin_code = ?", galleryID, code).Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotAuthorized
	}
	return &AdminGrant{galleryID: galleryID, code: code}, nil
}
