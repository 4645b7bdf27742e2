package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/fluxo-backend/internal/application"
	"github.com/oksasatya/fluxo-backend/internal/application/quota"
	"github.com/oksasatya/fluxo-backend/internal/application/verification"
	"github.com/oksasatya/fluxo-backend/internal/infrastructure/openrouter"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
	"github.com/oksasatya/fluxo-backend/pkg/response"
	"github.com/oksasatya/fluxo-backend/pkg/validation"
)

// invalidPayload answers binding and validation failures.
func invalidPayload(c *gin.Context, err error) {
	response.Fail(c, http.StatusUnprocessableEntity, "invalid payload", validation.ToDetails(err))
}

// writeError maps application errors to HTTP statuses. Unknown errors are
// logged and reported as 500 without details.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	var limitErr *quota.LimitError
	switch {
	case errors.As(err, &limitErr):
		response.Fail(c, http.StatusTooManyRequests,
			fmt.Sprintf("daily limit of %d requests exceeded, try again tomorrow", limitErr.Limit),
			gin.H{"daily_limit": limitErr.Limit})

	case errors.Is(err, application.ErrEmailTaken),
		errors.Is(err, application.ErrWrongPassword),
		errors.Is(err, application.ErrSamePassword),
		errors.Is(err, application.ErrStyleNotFound),
		errors.Is(err, helpers.ErrPasswordTooLong),
		errors.Is(err, verification.ErrInvalidOrExpired):
		response.Fail(c, http.StatusBadRequest, err.Error(), nil)

	case errors.Is(err, verification.ErrAlreadyConfirmed):
		response.Fail(c, http.StatusConflict, err.Error(), nil)

	case errors.Is(err, helpers.ErrUnsupportedContentType):
		response.Fail(c, http.StatusUnsupportedMediaType, err.Error(), nil)

	case errors.Is(err, application.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, err.Error(), nil)

	case errors.Is(err, application.ErrUserNotFound),
		errors.Is(err, verification.ErrUserNotFound),
		errors.Is(err, quota.ErrUserNotFound):
		response.Fail(c, http.StatusNotFound, "user not found", nil)

	case errors.Is(err, verification.ErrRateLimited):
		response.Fail(c, http.StatusTooManyRequests, err.Error(), nil)

	case errors.Is(err, verification.ErrNotificationFailed),
		errors.Is(err, openrouter.ErrGenerationFailed):
		response.Fail(c, http.StatusBadGateway, err.Error(), nil)

	case errors.Is(err, openrouter.ErrGenerationTimeout):
		response.Fail(c, http.StatusGatewayTimeout, err.Error(), nil)

	case errors.Is(err, openrouter.ErrGenerationUnavailable),
		errors.Is(err, application.ErrSearchUnavailable),
		errors.Is(err, application.ErrStorageUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, err.Error(), nil)

	default:
		if logger != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"path":       c.FullPath(),
				"request_id": c.GetString("request_id"),
			}).Error("request failed")
		}
		response.Fail(c, http.StatusInternalServerError, "internal server error", nil)
	}
}
