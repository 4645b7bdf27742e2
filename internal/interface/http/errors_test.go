package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/fluxo-backend/internal/application"
	"github.com/oksasatya/fluxo-backend/internal/application/quota"
	"github.com/oksasatya/fluxo-backend/internal/application/verification"
	"github.com/oksasatya/fluxo-backend/internal/infrastructure/openrouter"
	"github.com/oksasatya/fluxo-backend/pkg/helpers"
)

func TestWriteErrorStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		want int
	}{
		{&quota.LimitError{Limit: 3}, http.StatusTooManyRequests},
		{fmt.Errorf("reserve: %w", &quota.LimitError{Limit: 3}), http.StatusTooManyRequests},
		{application.ErrEmailTaken, http.StatusBadRequest},
		{application.ErrStyleNotFound, http.StatusBadRequest},
		{verification.ErrAlreadyConfirmed, http.StatusConflict},
		{verification.ErrInvalidOrExpired, http.StatusBadRequest},
		{application.ErrInvalidCredentials, http.StatusUnauthorized},
		{verification.ErrUserNotFound, http.StatusNotFound},
		{quota.ErrUserNotFound, http.StatusNotFound},
		{verification.ErrRateLimited, http.StatusTooManyRequests},
		{verification.ErrNotificationFailed, http.StatusBadGateway},
		{fmt.Errorf("%w: status 500", openrouter.ErrGenerationFailed), http.StatusBadGateway},
		{openrouter.ErrGenerationTimeout, http.StatusGatewayTimeout},
		{openrouter.ErrGenerationUnavailable, http.StatusServiceUnavailable},
		{application.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w \"text/plain\"", helpers.ErrUnsupportedContentType), http.StatusUnsupportedMediaType},
		{errors.New("db exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		writeError(c, helpers.NewNopLogger(), tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(c, helpers.NewNopLogger(), errors.New("pq: password authentication failed"))
	assert.NotContains(t, w.Body.String(), "password authentication")
}
