package utils

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CacheNoCache = 0
	CacheCustom  = -1
)

// CacheRouter sets cache-control on every response, except for paths starting with one of the
// Overrides prefixes which get their own max-age (in seconds)
type CacheRouter struct {
	CacheTime int // defaults to CacheNoCache = 0
	Overrides map[string]int
}

func cacheHeader(seconds int) string {
	if seconds == CacheNoCache {
		return "no-cache"
	}
	return "public, max-age=" + strconv.Itoa(seconds)
}

func (cr *CacheRouter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		cacheTime := cr.CacheTime
		for prefix, seconds := range cr.Overrides {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				cacheTime = seconds
				break
			}
		}
		if cacheTime != CacheCustom {
			c.Header("cache-control", cacheHeader(cacheTime))
		}
		c.Next()
	}
}
