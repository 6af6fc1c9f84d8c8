package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"humorize/auth"
	"humorize/caption"
	"humorize/models"
	"humorize/storage"
	"humorize/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxImageBytes = 20 << 20

var errBadImage = errors.New("bad image")

type PhotoDeleteRequest struct {
	ID string `json:"id" form:"id" binding:"required"`
}

type upload struct {
	image caption.Image
	ext   string
}

// readImage reads the multipart "image" field
func readImage(c *gin.Context) (*upload, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return nil, errBadImage
	}
	if header.Size > maxImageBytes {
		return nil, errBadImage
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || len(data) > maxImageBytes {
		return nil, errBadImage
	}
	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") || utils.ImageTooLarge(data) {
		return nil, errBadImage
	}
	return &upload{
		image: caption.Image{Data: data, MimeType: mimeType},
		ext:   utils.SafeExt(header.Filename),
	}, nil
}

func writeImageError(c *gin.Context, err error) {
	if errors.Is(err, errBadImage) {
		c.JSON(http.StatusBadRequest, BadImageResponse)
		return
	}
	writeError(c, err)
}

// PhotoDescribe only captions the image. The active gallery's settings are used when there is one.
func (h *Handlers) PhotoDescribe(c *gin.Context, actor *auth.Actor) {
	up, err := readImage(c)
	if err != nil {
		writeImageError(c, err)
		return
	}
	var settings *caption.Settings
	if actor.GalleryID != "" {
		if g, err := models.GalleryByID(h.DB, actor.GalleryID); err == nil {
			settings = g.Settings
		}
	}
	text, err := h.Captioner.Describe(c.Request.Context(), up.image, settings)
	if err != nil {
		log.Warn().Err(err).Str("owner", actor.Identifier).Msg("describe failed")
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"error": "", "description": text})
}

// PhotoSave stores the image and adds it with its caption to the active gallery
func (h *Handlers) PhotoSave(c *gin.Context, actor *auth.Actor) {
	username := strings.TrimSpace(c.PostForm("username"))
	description := strings.TrimSpace(c.PostForm("description"))
	if username == "" || description == "" {
		c.JSON(http.StatusBadRequest, Response{Error: "username and description are required"})
		return
	}
	up, err := readImage(c)
	if err != nil {
		writeImageError(c, err)
		return
	}
	g := h.activeGallery(c, actor)
	if g == nil {
		return
	}
	ctx := c.Request.Context()
	path := storage.PhotoPath(g.ID, up.ext)
	if err = h.Storage.Upload(ctx, path, bytes.NewReader(up.image.Data), up.image.MimeType); err != nil {
		log.Error().Err(err).Str("path", path).Msg("upload failed")
		c.JSON(http.StatusInternalServerError, StorageErrorResponse)
		return
	}
	photo := &models.Photo{
		GalleryID:       g.ID,
		Username:        username,
		ImageURL:        h.Storage.PublicURL(path),
		StoragePath:     path,
		Description:     description,
		OwnerIdentifier: actor.Identifier,
	}
	if err = models.PhotoCreate(h.DB, photo); err != nil {
		storage.RemoveLogged(ctx, h.Storage, []string{path})
		writeError(c, err)
		return
	}
	h.Feed.Publish(FeedEvent{Type: EventPhotoAdded, GalleryID: g.ID, Photo: photo})
	c.JSON(http.StatusOK, photo)
}

func (h *Handlers) PhotoList(c *gin.Context, actor *auth.Actor) {
	g := h.activeGallery(c, actor)
	if g == nil {
		return
	}
	photos, err := models.PhotosByGallery(h.DB, g.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, photos)
}

// PhotoSearch returns the newest photo uploaded under the given username
func (h *Handlers) PhotoSearch(c *gin.Context, actor *auth.Actor) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, Response{Error: "username is required"})
		return
	}
	g := h.activeGallery(c, actor)
	if g == nil {
		return
	}
	photo, err := models.PhotoByGalleryAndUsername(h.DB, g.ID, username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, photo)
}

func (h *Handlers) PhotoDelete(c *gin.Context, actor *auth.Actor) {
	req := PhotoDeleteRequest{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}
	photo, err := models.PhotoByID(h.DB, req.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	g, err := models.GalleryByID(h.DB, photo.GalleryID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !auth.CanDeletePhoto(photo, g, actor) {
		writeError(c, models.ErrNotAuthorized)
		return
	}
	isAdmin := auth.IsGalleryAdmin(g, actor)
	deleted, err := models.DeletePhotoWithAdminCheck(h.DB, models.PhotoDeleteRequest{
		PhotoID:         photo.ID,
		OwnerIdentifier: actor.Identifier,
		IsAdmin:         isAdmin,
		AdminCode:       auth.AdminCodeFor(g, actor),
	}, h.cleanup(c.Request.Context()))
	if err != nil {
		writeError(c, err)
		return
	}
	h.Feed.Publish(FeedEvent{Type: EventPhotoDeleted, GalleryID: deleted.GalleryID, PhotoID: deleted.ID})
	c.JSON(http.StatusOK, OKResponse)
}
