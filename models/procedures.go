package models

import (
	"errors"
	"fmt"

	"humorize/utils"

	"gorm.io/gorm"
)

// CleanupFunc removes the stored images of photos about to be deleted. It runs inside the
// deletion transaction, before the records are removed, and must not fail the deletion.
type CleanupFunc func(photos []Photo)

// PhotoDeleteRequest mirrors what the actor claims. AdminCode is only looked at when IsAdmin is set.
type PhotoDeleteRequest struct {
	PhotoID         string
	OwnerIdentifier string
	IsAdmin         bool
	AdminCode       string
}

func adminCodeMatches(tx *gorm.DB, galleryID, code string) (bool, error) {
	if _, err := VerifyAdminCode(tx, galleryID, code); err != nil {
		if errors.Is(err, ErrNotAuthorized) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeletePhotoWithAdminCheck deletes a photo if the request carries the gallery's admin code
// or comes from the photo's owner. Both are checked against the database.
func DeletePhotoWithAdminCheck(db *gorm.DB, req PhotoDeleteRequest, cleanup CleanupFunc) (*Photo, error) {
	var deleted *Photo
	err := db.Transaction(func(tx *gorm.DB) error {
		photo, err := PhotoByID(tx, req.PhotoID)
		if err != nil {
			return err
		}
		allowed := false
		if req.IsAdmin {
			if allowed, err = adminCodeMatches(tx, photo.GalleryID, req.AdminCode); err != nil {
				return err
			}
		}
		if !allowed && req.OwnerIdentifier != "" && photo.OwnerIdentifier == req.OwnerIdentifier {
			allowed = true
		}
		if !allowed {
			return ErrNotAuthorized
		}
		if cleanup != nil {
			cleanup([]Photo{*photo})
		}
		if err = tx.Where("id = ?", photo.ID).Delete(&Photo{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrRecordDeleteFailed, err)
		}
		deleted = photo
		return nil
	})
	return deleted, err
}

// DeleteGalleryWithAdminCheck re-verifies adminCode against the database and then removes
// the gallery with all of its photos. Returns the removed photos.
func DeleteGalleryWithAdminCheck(db *gorm.DB, galleryID, adminCode string, cleanup CleanupFunc) ([]Photo, error) {
	var photos []Photo
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := VerifyAdminCode(tx, galleryID, utils.NormalizeCode(adminCode)); err != nil {
			return err
		}
		var err error
		if photos, err = PhotosByGallery(tx, galleryID); err != nil {
			return err
		}
		if cleanup != nil && len(photos) > 0 {
			cleanup(photos)
		}
		if err = tx.Where("gallery_id = ?", galleryID).Delete(&Photo{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrRecordDeleteFailed, err)
		}
		if err = tx.Where("id = ?", galleryID).Delete(&Gallery{}).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrRecordDeleteFailed, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photos, nil
}
