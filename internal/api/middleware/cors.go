package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// CORSConfig controls the cross-origin headers sent to browser clients of
// the upload and download routes.
type CORSConfig struct {
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        int
}

// DefaultCORSConfig allows any origin. Content-Disposition is exposed so
// browsers can read export filenames.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Accept", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader, "X-Total-Count", "Content-Disposition"},
		MaxAge:        3600,
	}
}

func CORS(config CORSConfig) gin.HandlerFunc {
	fixed := map[string]string{
		"Access-Control-Allow-Methods":  strings.Join(config.AllowMethods, ", "),
		"Access-Control-Allow-Headers":  strings.Join(config.AllowHeaders, ", "),
		"Access-Control-Expose-Headers": strings.Join(config.ExposeHeaders, ", "),
	}
	if config.MaxAge > 0 {
		fixed["Access-Control-Max-Age"] = strconv.Itoa(config.MaxAge)
	}
	anyOrigin := lo.Contains(config.AllowOrigins, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case anyOrigin:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin != "" && lo.Contains(config.AllowOrigins, origin):
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		for name, value := range fixed {
			if value != "" {
				c.Header(name, value)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
