package handler

import (
	"strings"
	"time"

	"farmhub/backend/internal/apperrors"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer   = "farmhub"
	userIDContext = "user_id"
)

// IssueToken signs an HS256 token whose subject is userID.
func IssueToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates tokenString and returns its subject.
func ParseToken(secret []byte, tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid or expired token", err)
	}
	if claims.Subject == "" {
		return "", apperrors.Unauthorized("token has no subject")
	}
	return claims.Subject, nil
}

// bearerToken reads the token from the Authorization header, or from the
// token query parameter for browsers opening a websocket.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// RequireAuth rejects requests without a valid token and stores the caller's
// user id in the context.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			abortWithError(c, apperrors.ErrUnauthenticated)
			return
		}
		userID, err := ParseToken(h.JWTSecret, raw)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(userIDContext, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDContext)
}
