package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	apperrors "github.com/thumbfast/server/internal/shared/errors"
	"github.com/thumbfast/server/internal/shared/response"
	"golang.org/x/crypto/bcrypt"
)

// AccessPasswordHeader carries the shared access secret.
const AccessPasswordHeader = "X-Access-Password"

// AccessKeyConfig holds the shared secret the server compares against.
// Hash is a bcrypt hash and wins over Password when both are set.
type AccessKeyConfig struct {
	Password string
	Hash     string
}

// AccessKey returns a middleware that rejects requests whose access header
// does not match the configured secret. With no secret configured every
// request is rejected.
func AccessKey(cfg AccessKeyConfig) gin.HandlerFunc {
	hash := []byte(cfg.Hash)
	password := []byte(cfg.Password)

	return func(c *gin.Context) {
		supplied := c.GetHeader(AccessPasswordHeader)
		if supplied == "" || !accessGranted(hash, password, []byte(supplied)) {
			response.AppError(c, apperrors.Unauthorized(""))
			return
		}
		c.Next()
	}
}

func accessGranted(hash, password, supplied []byte) bool {
	if len(hash) > 0 {
		return bcrypt.CompareHashAndPassword(hash, supplied) == nil
	}
	if len(password) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(password, supplied) == 1
}
