package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CookieName = "session_token"

// Gate reads the caller's access token from the Authorization header or the
// session cookie. Signing in happens against the backend, not here.
type Gate struct {
	verifier *Verifier
	cookie   string
}

func NewGate(v *Verifier, cookieName string) *Gate {
	if cookieName == "" {
		cookieName = CookieName
	}
	return &Gate{verifier: v, cookie: cookieName}
}

// Token returns the raw access token, or "" if the request carries none.
func (g *Gate) Token(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	tok, err := c.Cookie(g.cookie)
	if err != nil {
		return ""
	}
	return tok
}

func RegisterRoutes(r *gin.Engine, g *Gate) {
	api := r.Group("/api/auth")

	api.GET("/me", func(c *gin.Context) {
		u, ok := g.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, u)
	})
}

// CurrentUser resolves the user from a verified token.
func (g *Gate) CurrentUser(c *gin.Context) (User, bool) {
	tok := g.Token(c)
	if tok == "" || g.verifier == nil {
		return User{}, false
	}
	claims, err := g.verifier.Claims(tok)
	if err != nil {
		return User{}, false
	}
	return userFromClaims(claims), true
}

// AuthRequired rejects requests without a valid token.
func (g *Gate) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := g.CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
