// Package response writes the JSON error body shared by every endpoint.
package response

import (
	"errors"

	"github.com/gin-gonic/gin"
	apperrors "github.com/thumbfast/server/internal/shared/errors"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Translation turns a domain sentinel into a client-facing error.
// An empty Message shows the matched error's full text, including any
// detail it was wrapped with.
type Translation struct {
	Err     error
	Kind    apperrors.Kind
	Message string
}

// Translate returns the AppError for the first entry of table that err
// matches. ok is false when nothing matched.
func Translate(err error, table []Translation) (appErr *apperrors.AppError, ok bool) {
	for _, t := range table {
		if !errors.Is(err, t.Err) {
			continue
		}
		msg := t.Message
		if msg == "" {
			msg = err.Error()
		}
		return apperrors.New(t.Kind, msg, err), true
	}
	return nil, false
}

// AppError writes err with the status and code of its kind and aborts the
// chain. Only AppError messages reach the client.
func AppError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(kind.Status(), ErrorResponse{
		Error: apperrors.PublicMessage(err),
		Code:  kind.Code(),
	})
}
