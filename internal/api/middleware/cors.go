package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSConfig holds the cross-origin policy for the API.
type CORSConfig struct {
	AllowedOrigins  []string
	AllowAllOrigins bool
}

func (c CORSConfig) allows(origin string) bool {
	if c.AllowAllOrigins || len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// CORS returns a middleware applying the configured cross-origin policy.
// Requests from origins outside the allow list pass through without CORS
// headers, which makes the browser reject the response.
func CORS(config CORSConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if !config.allows(origin) {
			c.Next()
			return
		}

		h := c.Writer.Header()
		if config.AllowAllOrigins {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		h.Set("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
