package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// HandlerFunc receives the actor of the request
type HandlerFunc func(c *gin.Context, actor *Actor)

// Router is a wrapper class that resolves the actor from the session before every handler
type Router struct {
	Base gin.IRouter
}

func (cr *Router) baseExec(c *gin.Context, handler HandlerFunc) {
	session := LoadSession(c)
	actor, created := session.Actor()
	if created {
		if err := session.Save(); err != nil {
			log.Error().Err(err).Msg("failed to save new pseudo-identity")
		}
	}
	handler(c, actor)
}

func (cr *Router) POST(path string, handler HandlerFunc) {
	cr.Base.POST(path, func(c *gin.Context) {
		cr.baseExec(c, handler)
	})
}

func (cr *Router) GET(path string, handler HandlerFunc) {
	cr.Base.GET(path, func(c *gin.Context) {
		cr.baseExec(c, handler)
	})
}
