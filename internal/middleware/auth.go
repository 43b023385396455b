package middleware

import (
	"net/http"
	"strings"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimsKey = "claims"

	// SessionCookie carries the session token for browser requests that cannot
	// set an Authorization header (the OAuth redirect lands here).
	SessionCookie = "wizard_session"
)

// SessionClaims identify the merchant session: the shop is the tenant and the
// associated Shopify staff user is the actor.
type SessionClaims struct {
	Shop   string `json:"shop"`
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// SessionAuth validates the session token on every protected route. The
// Bearer header wins over the cookie.
func SessionAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			tokenStr, _ = c.Cookie(SessionCookie)
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}

		claims := &SessionClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid || claims.Shop == "" || claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("invalid or expired session"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *SessionClaims {
	claims, _ := c.MustGet(ClaimsKey).(*SessionClaims)
	return claims
}
