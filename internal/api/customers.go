package api

import (
	"net/http"

	"furniture-erp/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listCustomers(c *gin.Context) {
	customers, err := h.customers.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.respondError(c, "Failed to list customers", err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func (h *Handler) createCustomer(c *gin.Context) {
	var in service.CustomerInput
	if !bindJSON(c, &in) {
		return
	}

	customer, err := h.customers.Create(c.Request.Context(), &in)
	if err != nil {
		h.respondError(c, "Failed to create customer", err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) getCustomer(c *gin.Context) {
	customer, err := h.customers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Customer not found", err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) updateCustomer(c *gin.Context) {
	var in service.CustomerInput
	if !bindJSON(c, &in) {
		return
	}

	customer, err := h.customers.Update(c.Request.Context(), c.Param("id"), &in)
	if err != nil {
		h.respondError(c, "Failed to update customer", err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// customerHistory returns the orders of a customer, newest first
func (h *Handler) customerHistory(c *gin.Context) {
	history, err := h.customers.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to load customer history", err)
		return
	}
	c.JSON(http.StatusOK, history)
}
