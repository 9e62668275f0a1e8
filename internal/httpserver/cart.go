package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"qty"`
}

type setQuantityRequest struct {
	Quantity int `json:"qty"`
}

func (h *handlers) getCart(c *gin.Context) {
	view, err := h.deps.CartSvc.Get(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "productId is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	view, err := h.deps.CartSvc.Add(c.Request.Context(), currentUser(c).ID, req.ProductID, req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) setCartQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	view, err := h.deps.CartSvc.SetQuantity(c.Request.Context(), currentUser(c).ID, c.Param("productId"), req.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	view, err := h.deps.CartSvc.Remove(c.Request.Context(), currentUser(c).ID, c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.deps.CartSvc.Clear(c.Request.Context(), currentUser(c).ID); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
