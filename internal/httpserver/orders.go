package httpserver

import (
	"io"
	"net/http"
	"strings"

	ordersvc "github.com/b3nzuk3/gameCity-sub000/internal/service/order"
	paymentsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/payment"
	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// createOrder answers 201 for a new order and 200 when the idempotency key
// matched an order that already exists.
func (h *handlers) createOrder(c *gin.Context) {
	var req ordersvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	}

	var userID *string
	if u := currentUser(c); u != nil {
		userID = &u.ID
	}
	o, created, err := h.deps.OrderSvc.Create(c.Request.Context(), userID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, o)
}

func (h *handlers) myOrders(c *gin.Context) {
	orders, err := h.deps.OrderSvc.ListMine(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.deps.OrderSvc.Get(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) listOrders(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		abortWithMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := queryInt(c, "pageSize")
	if err != nil {
		abortWithMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	orders, total, err := h.deps.OrderSvc.List(c.Request.Context(), page, size)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "status is required")
		return
	}
	o, err := h.deps.OrderSvc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// initiatePayment always answers with the {success, message|error} shape;
// validation and provider failures are not HTTP errors.
func (h *handlers) initiatePayment(c *gin.Context) {
	var req paymentsvc.InitiateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	res, err := h.deps.PaymentSvc.Initiate(c.Request.Context(), req, currentUser(c))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Printf("http: initiate payment error=%v", err)
			c.JSON(status, gin.H{"success": false, "error": "internal server error"})
			return
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// paymentCallback always acknowledges so the provider stops retrying;
// failures are logged.
func (h *handlers) paymentCallback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		h.logger.Printf("http: read mpesa callback error=%v", err)
	} else if p, err := h.deps.PaymentSvc.HandleCallback(c.Request.Context(), body); err != nil {
		h.logger.Printf("http: mpesa callback error=%v", err)
	} else {
		h.logger.Printf("http: mpesa callback checkout_id=%s status=%s", p.CheckoutRequestID, p.Status)
	}
	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}
