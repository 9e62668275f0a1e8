package httpserver

import (
	"net/http"

	usersvc "github.com/b3nzuk3/gameCity-sub000/internal/service/user"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *handlers) register(c *gin.Context) {
	var req usersvc.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.deps.UserSvc.Register(c.Request.Context(), req); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Registration successful. Check your email to verify your account."})
}

func (h *handlers) verify(c *gin.Context) {
	u, err := h.deps.UserSvc.Verify(c.Request.Context(), c.Query("token"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified. You can now sign in.", "user": u})
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "email and password are required")
		return
	}
	u, token, err := h.deps.UserSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresIn": h.deps.UserSvc.TokenTTLSeconds(),
		"user":      u,
	})
}

func (h *handlers) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}
