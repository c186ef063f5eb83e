package middlewares

import (
	"crypto/subtle"
	"github.com/gin-gonic/gin"
	"net/http"
	"strings"
)

type Middlewares struct{}

func New() *Middlewares {
	return &Middlewares{}
}

// Auth requires "Authorization: Bearer <expected>". An empty expected token
// rejects every request.
func (m *Middlewares) Auth(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if expected == "" || !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(auth, "Bearer ")), []byte(expected)) != 1 {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
