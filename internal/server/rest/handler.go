package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/dmitrijs2005/storefront/internal/server/services"
	"github.com/gin-gonic/gin"
)

const msgCredentialsMismatch = "email and password dont match"

type signUpRequest struct {
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Password      string         `json:"password"`
	WishlistItems []any          `json:"wishlistItems"`
	CartItems     []any          `json:"cartItems"`
	Addresses     []any          `json:"addresses"`
	Preferences   map[string]any `json:"preferences"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

type verifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

func (s *HTTPServer) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	_, err := s.users.Register(c.Request.Context(), services.RegisterInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		WishlistItems: req.WishlistItems,
		CartItems:     req.CartItems,
		Addresses:     req.Addresses,
		Preferences:   req.Preferences,
	})
	switch {
	case err == nil:
		c.Status(http.StatusCreated)
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": "name, email and password are required"})
	case errors.Is(err, common.ErrorAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"message": "email already registered"})
	default:
		s.internalError(c, err)
	}
}

func (s *HTTPServer) signIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	token, err := s.users.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"message": "Logged In", "token": token})
	case errors.Is(err, common.ErrorUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": msgCredentialsMismatch})
	default:
		s.internalError(c, err)
	}
}

func (s *HTTPServer) authorizeToken(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (s *HTTPServer) fetchUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

func (s *HTTPServer) authorize(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (s *HTTPServer) deleteUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	err := s.users.DeleteUser(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		c.Status(http.StatusAccepted)
	case errors.Is(err, common.ErrorUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": msgCredentialsMismatch})
	default:
		s.internalError(c, err)
	}
}

func (s *HTTPServer) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	err := s.users.ChangePassword(c.Request.Context(), req.Email, req.Password, req.NewPassword)
	switch {
	case err == nil:
		c.Status(http.StatusAccepted)
	case errors.Is(err, common.ErrorValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": "new password is required"})
	case errors.Is(err, common.ErrorUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": msgCredentialsMismatch})
	default:
		s.internalError(c, err)
	}
}

func (s *HTTPServer) verifyPayment(c *gin.Context) {
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.PaymentVerified(resultInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}

	_, err := s.payments.VerifyPayment(c.Request.Context(), services.PaymentConfirmation{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	switch {
	case err == nil:
		s.metrics.PaymentVerified(resultVerified)
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, common.ErrSignatureMismatch):
		s.metrics.PaymentVerified(resultMismatch)
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
	case errors.Is(err, common.ErrorAlreadyExists):
		s.metrics.PaymentVerified(resultDuplicate)
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "payment already recorded"})
	default:
		s.metrics.PaymentVerified(resultError)
		s.internalError(c, err)
	}
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ready returns 503 once shutdown has started or when the store is unreachable.
func (s *HTTPServer) ready(c *gin.Context) {
	if s.shuttingDown.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
		return
	}
	if s.store != nil {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			loggerFrom(c, s.logger).Warn(c.Request.Context(), "store ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *HTTPServer) internalError(c *gin.Context, err error) {
	loggerFrom(c, s.logger).Error(c.Request.Context(), "request failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}

func (s *HTTPServer) recoverPanic(c *gin.Context, recovered any) {
	loggerFrom(c, s.logger).Error(c.Request.Context(), "panic recovered", "panic", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}

func currentUser(c *gin.Context) *models.User {
	u, _ := c.Get(userContextKey)
	user, _ := u.(*models.User)
	return user
}
