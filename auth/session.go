package auth

import (
	"humorize/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ownerKey      = "owner"
	userIdKey     = "user_id"
	userEmailKey  = "user_email"
	userNameKey   = "user_name"
	galleryKey    = "gallery"
	adminCodeKey  = "admin_code"
	oauthStateKey = "oauth_state"
)

// Session wraps the cookie session. It holds the pseudo-identity, the signed-in user and
// the active gallery with the admin code supplied for it, if any.
type Session struct {
	sessions.Session
}

func LoadSession(c *gin.Context) *Session {
	return &Session{
		Session: sessions.Default(c),
	}
}

func (s *Session) getString(key string) string {
	v, _ := s.Get(key).(string)
	return v
}

// Owner returns the pseudo-identity, generating it on first use. The caller saves the session.
func (s *Session) Owner() (owner string, created bool) {
	if owner = s.getString(ownerKey); owner != "" {
		return owner, false
	}
	owner = uuid.NewString()
	s.Set(ownerKey, owner)
	return owner, true
}

func (s *Session) User() *models.User {
	id := s.getString(userIdKey)
	if id == "" {
		return nil
	}
	return &models.User{
		ID:    id,
		Email: s.getString(userEmailKey),
		Name:  s.getString(userNameKey),
	}
}

func (s *Session) LoginUser(user *models.User) {
	s.Set(userIdKey, user.ID)
	s.Set(userEmailKey, user.Email)
	s.Set(userNameKey, user.Name)
}

// LogoutUser forgets the signed-in user. The pseudo-identity and the active gallery stay.
func (s *Session) LogoutUser() {
	s.Delete(userIdKey)
	s.Delete(userEmailKey)
	s.Delete(userNameKey)
}

// ActiveGallery returns the gallery the actor works in and the admin code they supplied for it
func (s *Session) ActiveGallery() (galleryID, adminCode string) {
	return s.getString(galleryKey), s.getString(adminCodeKey)
}

// EnterGallery makes galleryID active. A grant for the same gallery keeps the actor elevated.
func (s *Session) EnterGallery(galleryID string, grant *models.AdminGrant) {
	s.Set(galleryKey, galleryID)
	if grant != nil && grant.GalleryID() == galleryID {
		s.Set(adminCodeKey, grant.Code())
	} else {
		s.Delete(adminCodeKey)
	}
}

func (s *Session) LeaveGallery() {
	s.Delete(galleryKey)
	s.Delete(adminCodeKey)
}

func (s *Session) SetOAuthState(state string) {
	s.Set(oauthStateKey, state)
}

// PopOAuthState returns and forgets the state of a pending sign-in
func (s *Session) PopOAuthState() string {
	state := s.getString(oauthStateKey)
	s.Delete(oauthStateKey)
	return state
}

// Actor builds the actor of the current request. The caller saves the session when created is true.
func (s *Session) Actor() (actor *Actor, created bool) {
	owner, created := s.Owner()
	galleryID, code := s.ActiveGallery()
	actor = &Actor{
		Identifier: owner,
		User:       s.User(),
		GalleryID:  galleryID,
	}
	if galleryID != "" && code != "" {
		actor.Claim = &Claim{GalleryID: galleryID, Code: code}
	}
	return actor, created
}
