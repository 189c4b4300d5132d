package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vinshon/buildxup-backend/internal/http/handler"
)

// Validation runs before any service call, so a handler with no backing
// service is enough to exercise the rejection paths.
func newValidationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewAuthHandler(nil, true, zap.NewNop())
	r := gin.New()
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/otp/request", h.RequestOTP)
	return r
}

func post(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (bool, string) {
	t.Helper()
	var body struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Status, body.Message
}

func TestSignupRejectsMalformedBody(t *testing.T) {
	w := post(newValidationRouter(), "/auth/signup", "{not json")
	require.Equal(t, http.StatusBadRequest, w.Code)
	status, message := decodeEnvelope(t, w)
	require.False(t, status)
	require.Equal(t, "Invalid request body", message)
}

func TestSignupValidation(t *testing.T) {
	router := newValidationRouter()

	cases := map[string]string{
		"short first name": `{"first_name":"A","email":"asha@example.com","password":"secret1","company_name":"Acme"}`,
		"short password":   `{"first_name":"Asha","email":"asha@example.com","password":"abc","company_name":"Acme"}`,
		"long password":    `{"first_name":"Asha","email":"asha@example.com","password":"` + strings.Repeat("x", 21) + `","company_name":"Acme"}`,
		"bad phone":        `{"first_name":"Asha","phone":"12","email":"asha@example.com","password":"secret1","company_name":"Acme"}`,
		"bad email":        `{"first_name":"Asha","email":"not-an-email","password":"secret1","company_name":"Acme"}`,
		"missing company":  `{"first_name":"Asha","email":"asha@example.com","password":"secret1"}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := post(router, "/auth/signup", body)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			status, _ := decodeEnvelope(t, w)
			require.False(t, status)
		})
	}
}

func TestSignupRequiresEmail(t *testing.T) {
	router := newValidationRouter()

	// Email is mandatory for the admin signup even when a phone is supplied.
	for _, body := range []string{
		`{"first_name":"Asha","password":"secret1","company_name":"Acme"}`,
		`{"first_name":"Asha","phone":"+919900112233","password":"secret1","company_name":"Acme"}`,
	} {
		w := post(router, "/auth/signup", body)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		status, message := decodeEnvelope(t, w)
		require.False(t, status)
		require.Contains(t, message, "email")
	}
}

func TestOTPRequestRequiresIdentity(t *testing.T) {
	w := post(newValidationRouter(), "/auth/otp/request", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	_, message := decodeEnvelope(t, w)
	require.Equal(t, "Phone or email is required", message)
}

func TestLoginRequiresPassword(t *testing.T) {
	w := post(newValidationRouter(), "/auth/login", `{"phone":"+919900112233"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	status, _ := decodeEnvelope(t, w)
	require.False(t, status)
}
