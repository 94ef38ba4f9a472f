package response

import (
	"errors"

	"seatflow/internal/shared/apperrors"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError maps a classified error onto the standard envelope.
// Unclassified errors are reported as 500 without leaking their text.
func RespondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		RespondJSON(c, "error", 500, "internal server error", nil, nil)
		return
	}

	message := err.Error()
	if appErr.Kind == apperrors.KindInternal {
		message = appErr.Message
	}

	RespondJSON(c, "error", apperrors.HTTPStatus(appErr.Kind), message, nil, appErr.Details)
}
