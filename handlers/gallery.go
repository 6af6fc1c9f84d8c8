package handlers

import (
	"errors"
	"net/http"
	"strings"

	"humorize/auth"
	"humorize/caption"
	"humorize/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type GalleryCreateRequest struct {
	Name     string            `json:"name" form:"name" binding:"required"`
	Settings *caption.Settings `json:"settings" form:"-"`
}

type GalleryJoinRequest struct {
	ShareCode string `json:"share_code" form:"share_code" binding:"required"`
	AdminCode string `json:"admin_code" form:"admin_code"`
}

type GalleryDeleteRequest struct {
	AdminCode string `json:"admin_code" form:"admin_code"`
}

// GalleryInfo is what members see. AdminCode is only filled for admins.
type GalleryInfo struct {
	*models.Gallery
	IsAdmin   bool   `json:"is_admin"`
	AdminCode string `json:"admin_code,omitempty"`
}

func galleryInfo(g *models.Gallery, actor *auth.Actor) GalleryInfo {
	info := GalleryInfo{Gallery: g, IsAdmin: auth.IsGalleryAdmin(g, actor)}
	if info.IsAdmin {
		info.AdminCode = g.AdminCode
	}
	return info
}

// enter makes g the active gallery of the actor, with the admin code if it was verified
func enter(c *gin.Context, actor *auth.Actor, g *models.Gallery, grant *models.AdminGrant) bool {
	session := auth.LoadSession(c)
	session.EnterGallery(g.ID, grant)
	if !saveSession(c, session) {
		return false
	}
	actor.GalleryID = g.ID
	actor.Claim = nil
	if grant != nil {
		actor.Claim = &auth.Claim{GalleryID: grant.GalleryID(), Code: grant.Code()}
	}
	return true
}

func (h *Handlers) GalleryCreate(c *gin.Context, actor *auth.Actor) {
	req := GalleryCreateRequest{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, Response{Error: "name is required"})
		return
	}
	g, err := models.GalleryCreate(h.DB, name, models.Creator{Identifier: actor.Identifier, User: actor.User}, req.Settings)
	if err != nil {
		writeError(c, err)
		return
	}
	grant, err := models.VerifyAdminCode(h.DB, g.ID, g.AdminCode)
	if err != nil {
		writeError(c, err)
		return
	}
	if !enter(c, actor, g, grant) {
		return
	}
	log.Info().Str("gallery", g.ID).Str("owner", actor.Identifier).Msg("gallery created")
	c.JSON(http.StatusOK, galleryInfo(g, actor))
}

// GalleryJoin enters a gallery by share code. A wrong admin code is not an error,
// the actor just joins as a member.
func (h *Handlers) GalleryJoin(c *gin.Context, actor *auth.Actor) {
	req := GalleryJoinRequest{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}
	g, err := models.GalleryByShareCode(h.DB, req.ShareCode)
	if err != nil {
		writeError(c, err)
		return
	}
	var grant *models.AdminGrant
	if strings.TrimSpace(req.AdminCode) != "" {
		grant, err = models.VerifyAdminCode(h.DB, g.ID, req.AdminCode)
		if err != nil && !errors.Is(err, models.ErrNotAuthorized) {
			writeError(c, err)
			return
		}
	}
	if !enter(c, actor, g, grant) {
		return
	}
	c.JSON(http.StatusOK, galleryInfo(g, actor))
}

func (h *Handlers) GalleryLeave(c *gin.Context, actor *auth.Actor) {
	session := auth.LoadSession(c)
	session.LeaveGallery()
	if !saveSession(c, session) {
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}

func (h *Handlers) GalleryCurrent(c *gin.Context, actor *auth.Actor) {
	g := h.activeGallery(c, actor)
	if g == nil {
		return
	}
	c.JSON(http.StatusOK, galleryInfo(g, actor))
}

func (h *Handlers) GalleryMine(c *gin.Context, actor *auth.Actor) {
	galleries, err := models.GalleriesByCreator(h.DB, models.Creator{Identifier: actor.Identifier, User: actor.User})
	if err != nil {
		writeError(c, err)
		return
	}
	result := make([]GalleryInfo, 0, len(galleries))
	for i := range galleries {
		result = append(result, galleryInfo(&galleries[i], actor))
	}
	c.JSON(http.StatusOK, result)
}

// GalleryDelete removes the active gallery with all photos and images. The admin code is checked
// again by the delete procedure, whatever the session says.
func (h *Handlers) GalleryDelete(c *gin.Context, actor *auth.Actor) {
	req := GalleryDeleteRequest{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}
	g := h.activeGallery(c, actor)
	if g == nil {
		return
	}
	if !auth.CanDeleteGallery(g, actor) {
		writeError(c, models.ErrNotAuthorized)
		return
	}
	code := req.AdminCode
	if strings.TrimSpace(code) == "" {
		code = auth.AdminCodeFor(g, actor)
	}
	photos, err := models.DeleteGalleryWithAdminCheck(h.DB, g.ID, code, h.cleanup(c.Request.Context()))
	if err != nil {
		writeError(c, err)
		return
	}
	session := auth.LoadSession(c)
	session.LeaveGallery()
	if !saveSession(c, session) {
		return
	}
	log.Info().Str("gallery", g.ID).Int("photos", len(photos)).Str("owner", actor.Identifier).Msg("gallery deleted")
	h.Feed.Publish(FeedEvent{Type: EventGalleryDeleted, GalleryID: g.ID})
	c.JSON(http.StatusOK, OKResponse)
}
