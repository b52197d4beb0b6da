package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps err to its apierr status and code. Errors without a
// kind are reported as 500 internal without leaking their text.
func RespondAPIError(c *gin.Context, err error) {
	if e, ok := apierr.As(err); ok {
		status := e.Status
		if status == 0 {
			status = apierr.StatusFor(e.Code)
		}
		RespondError(c, status, e.Code, e)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		RespondError(c, http.StatusGatewayTimeout, apierr.CodeServiceTimeout, err)
		return
	}
	_ = c.Error(err)
	RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, errors.New("internal error"))
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
