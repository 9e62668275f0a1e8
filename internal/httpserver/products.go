package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/b3nzuk3/gameCity-sub000/internal/domain"
	productsvc "github.com/b3nzuk3/gameCity-sub000/internal/service/product"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func parseListQuery(c *gin.Context) (productsvc.ListQuery, error) {
	q := productsvc.ListQuery{
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		Query:    c.Query("q"),
		Sort:     c.Query("sort"),
	}
	var err error
	if q.Page, err = queryInt(c, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = queryInt(c, "pageSize"); err != nil {
		return q, err
	}
	if q.MinPrice, err = queryDecimal(c, "minPrice"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = queryDecimal(c, "maxPrice"); err != nil {
		return q, err
	}
	return q, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{key: key}
	}
	return n, nil
}

func queryDecimal(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, &paramError{key: key}
	}
	return &d, nil
}

type paramError struct {
	key string
}

func (e *paramError) Error() string {
	return "invalid query parameter " + e.key
}

func (h *handlers) listProducts(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		abortWithMessage(c, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.deps.ProductSvc.List(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.deps.ProductSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) createProduct(c *gin.Context) {
	var req domain.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.deps.ProductSvc.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handlers) updateProduct(c *gin.Context) {
	var req domain.Product
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.deps.ProductSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) deleteProduct(c *gin.Context) {
	if err := h.deps.ProductSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}

func (h *handlers) listCategories(c *gin.Context) {
	cats, err := h.deps.CategorySvc.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}
