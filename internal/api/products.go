package api

import (
	"net/http"
	"strings"

	"furniture-erp/internal/service"

	"github.com/gin-gonic/gin"
)

// listProducts serves a page (cursor) or, when q is set, a search
func (h *Handler) listProducts(c *gin.Context) {
	var (
		page *service.ProductPage
		err  error
	)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		page, err = h.catalog.Search(c.Request.Context(), q)
	} else {
		page, err = h.catalog.Page(c.Request.Context(), c.Query("cursor"))
	}
	if err != nil {
		h.respondError(c, "Failed to list products", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) createProduct(c *gin.Context) {
	var in service.ProductInput
	if !bindJSON(c, &in) {
		return
	}

	product, err := h.catalog.Create(c.Request.Context(), &in)
	if err != nil {
		h.respondError(c, "Failed to create product", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Product not found", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var in service.ProductInput
	if !bindJSON(c, &in) {
		return
	}

	product, err := h.catalog.Update(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		h.respondError(c, "Failed to update product", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, "Failed to delete product", err)
		return
	}
	c.Status(http.StatusNoContent)
}
