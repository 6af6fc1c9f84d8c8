package handlers

import (
	"context"
	"errors"
	"net/http"

	"humorize/auth"
	"humorize/caption"
	"humorize/models"
	"humorize/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Response struct {
	Error string `json:"error"`
	// Retry is "later" or "now" for caption failures
	Retry string `json:"retry,omitempty"`
}

const (
	retryLater = "later"
	retryNow   = "now"
)

var (
	// Predefined errors
	OKResponse             = Response{}
	NoGalleryResponse      = Response{Error: "no active gallery"}
	SessionErrorResponse   = Response{Error: "session error"}
	StorageErrorResponse   = Response{Error: "storage error"}
	DBErrorResponse        = Response{Error: "DB error"}
	BadImageResponse       = Response{Error: "image is missing or not an image"}
	IdentityOffResponse    = Response{Error: "sign-in is not configured"}
	InvalidOAuthResponse   = Response{Error: "invalid sign-in state"}
	IdentityFailedResponse = Response{Error: "sign-in failed"}
)

// Captioner describes images, see caption.Client
type Captioner interface {
	Describe(ctx context.Context, img caption.Image, settings *caption.Settings) (string, error)
}

type Handlers struct {
	DB        *gorm.DB
	Storage   storage.StorageAPI
	Captioner Captioner
	// Identity is nil when sign-in is not configured
	Identity auth.IdentityProvider
	Feed     *Feed
}

// Register adds all application routes to r
func (h *Handlers) Register(r gin.IRouter) {
	router := &auth.Router{Base: r}

	router.GET("/auth/status", h.AuthStatus)
	router.GET("/auth/google/login", h.GoogleLogin)
	router.GET("/auth/google/callback", h.GoogleCallback)
	router.POST("/auth/logout", h.Logout)

	router.POST("/gallery/create", h.GalleryCreate)
	router.POST("/gallery/join", h.GalleryJoin)
	router.POST("/gallery/leave", h.GalleryLeave)
	router.GET("/gallery/current", h.GalleryCurrent)
	router.GET("/gallery/mine", h.GalleryMine)
	router.POST("/gallery/delete", h.GalleryDelete)
	router.GET("/gallery/live", h.GalleryLive)

	router.POST("/photo/describe", h.PhotoDescribe)
	router.POST("/photo/save", h.PhotoSave)
	router.GET("/photo/list", h.PhotoList)
	router.GET("/photo/search", h.PhotoSearch)
	router.POST("/photo/delete", h.PhotoDelete)
}

// writeError maps domain errors to status codes
func writeError(c *gin.Context, err error) {
	var serviceErr *caption.ServiceError
	switch {
	case errors.Is(err, models.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, Response{Error: err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Error: err.Error()})
	case errors.Is(err, caption.ErrAllCredentialsExhausted), errors.Is(err, caption.ErrNoCredentials):
		c.JSON(http.StatusServiceUnavailable, Response{Error: err.Error(), Retry: retryLater})
	case errors.Is(err, caption.ErrEmptyResponse), errors.As(err, &serviceErr):
		c.JSON(http.StatusBadGateway, Response{Error: err.Error(), Retry: retryNow})
	case errors.Is(err, models.ErrRecordDeleteFailed):
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("RecordDeleteFailed")
		c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusInternalServerError, DBErrorResponse)
	}
}

func saveSession(c *gin.Context, session *auth.Session) bool {
	if err := session.Save(); err != nil {
		log.Error().Err(err).Msg("session save failed")
		c.JSON(http.StatusInternalServerError, SessionErrorResponse)
		return false
	}
	return true
}

// saveSessionLogged saves when the response no longer depends on it
func saveSessionLogged(session *auth.Session) {
	if err := session.Save(); err != nil {
		log.Warn().Err(err).Msg("session save failed")
	}
}

// activeGallery loads the gallery the actor is in. It writes the response and returns nil when
// there is none, and leaves galleries that no longer exist.
func (h *Handlers) activeGallery(c *gin.Context, actor *auth.Actor) *models.Gallery {
	if actor.GalleryID == "" {
		c.JSON(http.StatusNotFound, NoGalleryResponse)
		return nil
	}
	g, err := models.GalleryByID(h.DB, actor.GalleryID)
	if errors.Is(err, models.ErrNotFound) {
		session := auth.LoadSession(c)
		session.LeaveGallery()
		saveSessionLogged(session)
		c.JSON(http.StatusNotFound, NoGalleryResponse)
		return nil
	}
	if err != nil {
		writeError(c, err)
		return nil
	}
	return g
}

func (h *Handlers) storagePath(p *models.Photo) string {
	if p.StoragePath != "" {
		return p.StoragePath
	}
	path, _ := h.Storage.PathFromURL(p.ImageURL)
	return path
}

// cleanup removes the images of deleted photos, failures are only logged
func (h *Handlers) cleanup(ctx context.Context) models.CleanupFunc {
	return func(photos []models.Photo) {
		paths := make([]string, 0, len(photos))
		for i := range photos {
			if path := h.storagePath(&photos[i]); path != "" {
				paths = append(paths, path)
			}
		}
		storage.RemoveLogged(ctx, h.Storage, paths)
	}
}
