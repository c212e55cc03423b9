package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/bufia/equipment-booking-backend/internal/pkg/apperror"
)

func writeError(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, err)
	return w
}

func TestErrorUsesAppErrorStatus(t *testing.T) {
	w := writeError(apperror.New(http.StatusNotFound, "machine not found"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"machine not found"}`, w.Body.String())
}

func TestErrorUnwrapsToAppError(t *testing.T) {
	sentinel := apperror.New(http.StatusConflict, "email already used")
	w := writeError(fmt.Errorf("register: %w", sentinel))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"email already used"}`, w.Body.String())
}

func TestErrorDefaultsToInternal(t *testing.T) {
	w := writeError(errors.New("connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}
