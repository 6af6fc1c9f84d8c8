package auth

import (
	"crypto/subtle"

	"humorize/models"
	"humorize/utils"
)

// Actor is whoever performs the request
type Actor struct {
	Identifier string       // pseudo-identity, always set
	User       *models.User // nil unless signed in
	GalleryID  string       // active gallery, may be empty
	Claim      *Claim
}

// Claim is the admin code the actor supplied for a gallery. It is a hint for the UI and the
// resolver; privileged deletes re-verify it with models.VerifyAdminCode.
type Claim struct {
	GalleryID string
	Code      string
}

// ClaimFor returns the admin code claimed for galleryID, or ""
func (a *Actor) ClaimFor(galleryID string) string {
	if a == nil || a.Claim == nil || a.Claim.GalleryID != galleryID {
		return ""
	}
	return a.Claim.Code
}

func sameCode(stored, supplied string) bool {
	supplied = utils.NormalizeCode(supplied)
	if stored == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

// IsGalleryAdmin is true for the creator (by signed-in user or by pseudo-identity) and for
// anyone who supplied the admin code of the gallery in this session
func IsGalleryAdmin(g *models.Gallery, a *Actor) bool {
	if g == nil || a == nil {
		return false
	}
	if a.User.SignedIn() && g.CreatorGoogleID != "" && a.User.ID == g.CreatorGoogleID {
		return true
	}
	if a.Identifier != "" && g.CreatorIdentifier != "" && a.Identifier == g.CreatorIdentifier {
		return true
	}
	return sameCode(g.AdminCode, a.ClaimFor(g.ID))
}

// CanDeletePhoto lets admins delete any photo of their gallery and everyone their own photos
func CanDeletePhoto(p *models.Photo, g *models.Gallery, a *Actor) bool {
	if p == nil || a == nil {
		return false
	}
	if g != nil && g.ID == p.GalleryID && IsGalleryAdmin(g, a) {
		return true
	}
	return a.Identifier != "" && p.OwnerIdentifier == a.Identifier
}

// CanDeleteGallery only gates the request. models.DeleteGalleryWithAdminCheck makes the decision.
func CanDeleteGallery(g *models.Gallery, a *Actor) bool {
	return IsGalleryAdmin(g, a)
}

// AdminCodeFor returns the code to send to the privileged procedures: the claimed code if any,
// otherwise the stored one when the actor is admin by creation
func AdminCodeFor(g *models.Gallery, a *Actor) string {
	if code := a.ClaimFor(g.ID); code != "" {
		return code
	}
	if IsGalleryAdmin(g, a) {
		return g.AdminCode
	}
	return ""
}
