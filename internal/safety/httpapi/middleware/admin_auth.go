package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/contentsafety/internal/platform/logger"
	"github.com/yungbote/contentsafety/internal/safety/httpapi/response"
)

var errUnauthorized = errors.New("missing or invalid token")

// AdminAuth requires an HS256 bearer token signed with secret and carrying a
// subject. The subject is stored under "admin_subject".
type AdminAuth struct {
	log    *logger.Logger
	secret []byte
	parser *jwt.Parser
}

func NewAdminAuth(log *logger.Logger, secret string) *AdminAuth {
	return &AdminAuth{
		log:    logger.OrNop(log).With("Middleware", "AdminAuth"),
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

func (a *AdminAuth) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", errUnauthorized)
			return
		}
		claims := &jwt.RegisteredClaims{}
		token, err := a.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return a.secret, nil
		})
		if err != nil || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
			a.log.Warn("rejected admin token", "error", err)
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", errUnauthorized)
			return
		}
		c.Set("admin_subject", claims.Subject)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
