package httpserver

import (
	"errors"
	"net/http"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	"github.com/b3nzuk3/gameCity-sub000/internal/mpesa"
	cartsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/cart"
	ordersvc "github.com/b3nzuk3/gameCity-sub000/internal/service/order"
	paymentsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/payment"
	productsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/product"
	usersvc "github.com/b3nzuk3/gameCity-sub000/internal/service/user"
	"github.com/gin-gonic/gin"
)

// statusFor maps service and domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, paymentsvc.ErrUnknownPayment):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, cartsvc.ErrOutOfStock),
		errors.Is(err, paymentsvc.ErrAlreadyPaid),
		errors.Is(err, ordersvc.ErrKeyReused):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, ordersvc.ErrInvalidOrder),
		errors.Is(err, ordersvc.ErrTotalsMismatch),
		errors.Is(err, paymentsvc.ErrAmountMismatch),
		errors.Is(err, productsvc.ErrInvalidProduct),
		errors.Is(err, usersvc.ErrInvalidInput),
		errors.Is(err, usersvc.ErrInvalidToken),
		errors.Is(err, mpesa.ErrInvalidPhone),
		errors.Is(err, mpesa.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, usersvc.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, usersvc.ErrNotVerified), errors.Is(err, ordersvc.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the mapped status. Internal errors are
// logged and replaced with a generic message.
func (h *handlers) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Printf("http: %s %s error=%v", c.Request.Method, c.Request.URL.Path, err)
		abortWithMessage(c, status, "internal server error")
		return
	}
	abortWithMessage(c, status, err.Error())
}

func abortWithMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}
