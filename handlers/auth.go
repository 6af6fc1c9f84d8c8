package handlers

import (
	"net/http"

	"humorize/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func (h *Handlers) AuthStatus(c *gin.Context, actor *auth.Actor) {
	c.JSON(http.StatusOK, gin.H{
		"error":          "",
		"identifier":     actor.Identifier,
		"user":           actor.User,
		"google_enabled": h.Identity != nil,
	})
}

func (h *Handlers) GoogleLogin(c *gin.Context, actor *auth.Actor) {
	if h.Identity == nil {
		c.JSON(http.StatusNotFound, IdentityOffResponse)
		return
	}
	state := uuid.NewString()
	session := auth.LoadSession(c)
	session.SetOAuthState(state)
	if !saveSession(c, session) {
		return
	}
	c.Redirect(http.StatusFound, h.Identity.AuthCodeURL(state))
}

func (h *Handlers) GoogleCallback(c *gin.Context, actor *auth.Actor) {
	if h.Identity == nil {
		c.JSON(http.StatusNotFound, IdentityOffResponse)
		return
	}
	session := auth.LoadSession(c)
	expected := session.PopOAuthState()
	if expected == "" || c.Query("state") != expected {
		saveSessionLogged(session)
		c.JSON(http.StatusBadRequest, InvalidOAuthResponse)
		return
	}
	user, err := h.Identity.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		log.Warn().Err(err).Msg("google sign-in failed")
		saveSessionLogged(session)
		c.JSON(http.StatusBadGateway, IdentityFailedResponse)
		return
	}
	session.LoginUser(user)
	if !saveSession(c, session) {
		return
	}
	log.Info().Str("user", user.ID).Str("owner", actor.Identifier).Msg("signed in")
	c.Redirect(http.StatusFound, "/")
}

func (h *Handlers) Logout(c *gin.Context, actor *auth.Actor) {
	session := auth.LoadSession(c)
	session.LogoutUser()
	if !saveSession(c, session) {
		return
	}
	c.JSON(http.StatusOK, OKResponse)
}
