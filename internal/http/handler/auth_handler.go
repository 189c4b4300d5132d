package handler

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"

	"github.com/vinshon/buildxup-backend/internal/domain"
	"github.com/vinshon/buildxup-backend/internal/http/middleware"
	"github.com/vinshon/buildxup-backend/internal/http/respond"
	"github.com/vinshon/buildxup-backend/internal/service"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)

// AuthHandler exposes the signup, OTP, login, and profile endpoints.
type AuthHandler struct {
	auth        *service.AuthService
	development bool
	logger      *zap.Logger
}

// NewAuthHandler wires the handler.
func NewAuthHandler(auth *service.AuthService, development bool, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &AuthHandler{auth: auth, development: development, logger: logger}
}

type otpRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (r otpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Match(phonePattern)),
		validation.Field(&r.Email, is.Email),
	)
}

type otpVerifyRequest struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (r otpVerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Match(phonePattern)),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.OTP, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

type signupRequest struct {
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Phone              string `json:"phone"`
	Email              string `json:"email"`
	Password           string `json:"password"`
	CompanyName        string `json:"company_name"`
	CompanyDescription string `json:"company_description"`
}

func (r signupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(2, 50)),
		validation.Field(&r.LastName, validation.Length(0, 50)),
		validation.Field(&r.Phone, validation.Match(phonePattern)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 20)),
		validation.Field(&r.CompanyName, validation.Required, validation.Length(2, 100)),
		validation.Field(&r.CompanyDescription, validation.Length(0, 500)),
	)
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Match(phonePattern)),
		validation.Field(&r.Email, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// RequestOTP handles POST /auth/otp/request.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req otpRequest
	if !h.bind(c, &req) {
		return
	}

	identity, err := domain.NewIdentity(req.Phone, req.Email)
	if err != nil {
		respond.Fail(c, http.StatusUnprocessableEntity, "Phone or email is required")
		return
	}

	if err := h.auth.RequestTempOTP(c.Request.Context(), identity); err != nil {
		respond.Error(c, err, h.development)
		return
	}
	respond.Success(c, http.StatusOK, "OTP sent successfully", nil)
}

// VerifyOTP handles POST /auth/otp/verify.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req otpVerifyRequest
	if !h.bind(c, &req) {
		return
	}

	identity, err := domain.NewIdentity(req.Phone, req.Email)
	if err != nil {
		respond.Fail(c, http.StatusUnprocessableEntity, "Phone or email is required")
		return
	}

	if err := h.auth.VerifyOTP(c.Request.Context(), identity, req.OTP); err != nil {
		respond.Error(c, err, h.development)
		return
	}
	respond.Success(c, http.StatusOK, "OTP verified successfully", nil)
}

// Signup handles POST /auth/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.auth.Signup(c.Request.Context(), service.SignupInput{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Phone:              req.Phone,
		Email:              req.Email,
		Password:           req.Password,
		CompanyName:        req.CompanyName,
		CompanyDescription: req.CompanyDescription,
	})
	if err != nil {
		respond.Error(c, err, h.development)
		return
	}
	respond.Success(c, http.StatusCreated, "User created successfully", result)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	identity, err := domain.NewIdentity(req.Phone, req.Email)
	if err != nil {
		respond.Fail(c, http.StatusUnprocessableEntity, "Phone or email is required")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), identity, req.Password)
	if err != nil {
		respond.Error(c, err, h.development)
		return
	}
	respond.Success(c, http.StatusOK, "Login successful", result)
}

// Me handles GET /auth/me for the authenticated caller.
func (h *AuthHandler) Me(c *gin.Context) {
	auth, ok := middleware.GetAuthContext(c)
	if !ok {
		respond.Fail(c, http.StatusUnauthorized, "Unauthorized access")
		return
	}

	profile, err := h.auth.Profile(c.Request.Context(), auth.UserID)
	if err != nil {
		respond.Error(c, err, h.development)
		return
	}
	respond.Success(c, http.StatusOK, "Profile fetched successfully", profile)
}

// bind decodes and validates the JSON body, writing the failure envelope
// itself when either step fails.
func (h *AuthHandler) bind(c *gin.Context, req interface{ Validate() error }) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := req.Validate(); err != nil {
		respond.Fail(c, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}
