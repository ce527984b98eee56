package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-account-service/internal/application"
	"github.com/oksasatya/go-account-service/internal/interface/middleware"
	"github.com/oksasatya/go-account-service/pkg/helpers"
	"github.com/oksasatya/go-account-service/pkg/validation"
)

const msgServerError = "Oops, the server ran into an error"

// AccountHandler serves /api/users. Response shapes are fixed by existing
// clients: register reports errors under "errors", login always answers 200
// with success:false on bad credentials, verify and re-verify answer in plain text.
type AccountHandler struct {
	Svc     *application.AccountService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAccountHandler(svc *application.AccountService, logger *logrus.Logger, cookies *helpers.Manager) *AccountHandler {
	return &AccountHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

type reVerifyRequest struct {
	Email string `json:"email"`
}

type loginResponse struct {
	Success bool `json:"success"`
	Errors  any  `json:"errors,omitempty"`
}

type messageError struct {
	Message string `json:"message"`
}

type checkAuthResponse struct {
	Auth  bool   `json:"auth"`
	Token string `json:"token,omitempty"`
}

type tokenResponse struct {
	Token string `json:"token,omitempty"`
}

func clientInfo(c *gin.Context) application.ClientInfo {
	return application.ClientInfo{IP: middleware.ClientIP(c), UserAgent: c.Request.UserAgent()}
}

func (h *AccountHandler) internalError(c *gin.Context, op string, err error) {
	helpers.LogError(h.Logger, op+" failed", err, logrus.Fields{"request_id": c.GetString(middleware.RequestIDKey)})
	c.JSON(http.StatusInternalServerError, gin.H{"errors": msgServerError})
}

// Register handles PUT /register.
func (h *AccountHandler) Register(c *gin.Context) {
	var in application.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": validation.FromError(err, nil)})
		return
	}

	_, err := h.Svc.Register(c.Request.Context(), in, clientInfo(c))
	var verr *application.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
	case errors.Is(err, application.ErrDuplicateEmail):
		c.JSON(http.StatusBadRequest, gin.H{"errors": []gin.H{{"errors": application.ErrDuplicateEmail.Error()}}})
	default:
		h.internalError(c, "register", err)
	}
}

// VerifyEmail handles POST /verify/:token. Every failure is the same "error".
func (h *AccountHandler) VerifyEmail(c *gin.Context) {
	if err := h.Svc.VerifyEmail(c.Request.Context(), c.Param("token")); err != nil {
		var ierr *application.InternalError
		if errors.As(err, &ierr) {
			helpers.LogError(h.Logger, "verify email failed", err, nil)
		}
		c.String(http.StatusOK, "error")
		return
	}
	c.String(http.StatusOK, "success")
}

// ReVerify handles POST /re-verify.
func (h *AccountHandler) ReVerify(c *gin.Context) {
	var req reVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusOK, "error")
		return
	}
	if err := h.Svc.RequestReVerification(c.Request.Context(), req.Email, clientInfo(c)); err != nil {
		helpers.LogError(h.Logger, "re-verify failed", err, nil)
		c.String(http.StatusOK, "error")
		return
	}
	c.String(http.StatusOK, "success")
}

// CheckAuth handles GET /check-auth.
func (h *AccountHandler) CheckAuth(c *gin.Context) {
	st := h.Svc.CheckAuth(c.Request.Context(), helpers.TokenFromRequest(c))
	c.JSON(http.StatusOK, checkAuthResponse{Auth: st.Authenticated, Token: st.Token})
}

// Login handles POST /login.
func (h *AccountHandler) Login(c *gin.Context) {
	var in application.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusOK, loginResponse{Errors: validation.FromError(err, nil)})
		return
	}

	res, err := h.Svc.Login(c.Request.Context(), in, clientInfo(c))
	var (
		verr *application.ValidationError
		serr *application.TokenSigningError
	)
	switch {
	case err == nil:
		h.Cookies.SetSession(c, res.Token, res.ExpiresAt)
		c.JSON(http.StatusOK, loginResponse{Success: true})
	case errors.As(err, &verr):
		c.JSON(http.StatusOK, loginResponse{Errors: verr.Fields})
	case errors.Is(err, application.ErrEmailNotFound),
		errors.Is(err, application.ErrIncorrectPassword),
		errors.As(err, &serr):
		c.JSON(http.StatusOK, loginResponse{Errors: messageError{Message: err.Error()}})
	default:
		h.internalError(c, "login", err)
	}
}

// Logout handles POST /logout. It always succeeds.
func (h *AccountHandler) Logout(c *gin.Context) {
	token := helpers.TokenFromRequest(c)
	h.Svc.Logout(c.Request.Context(), token, clientInfo(c))
	h.Cookies.Clear(c)
	c.JSON(http.StatusOK, tokenResponse{Token: token})
}
