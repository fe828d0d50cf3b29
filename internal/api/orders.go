package api

import (
	"net/http"

	"furniture-erp/internal/auth"
	"furniture-erp/internal/production"
	"furniture-erp/internal/service"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type productionRequest struct {
	Lines []production.DispatchLine `json:"lines"`
}

func (h *Handler) listOrders(c *gin.Context) {
	var q service.OrderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query",
			"details": err.Error(),
		})
		return
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, "Failed to list orders", err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// createOrder handles order creation. Callers holding approve:orders skip
// the approval queue.
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}
	if req.SellerID == "" {
		req.SellerID = auth.UserID(c)
	}
	if req.SellerName == "" {
		req.SellerName = auth.UserName(c)
	}

	order, created, err := h.orders.CreateOrder(c.Request.Context(), &req, auth.HasScope(c, auth.ScopeApproveOrders))
	if err != nil {
		h.respondError(c, "Failed to create order", err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, order)
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Order not found", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) updateOrder(c *gin.Context) {
	var req service.UpdateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.respondError(c, "Failed to update order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.respondError(c, "Failed to update order status", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// sendToProduction accepts an empty body, which sends every line
func (h *Handler) sendToProduction(c *gin.Context) {
	var req productionRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	res, err := h.orders.SendToProduction(c.Request.Context(), c.Param("id"), req.Lines)
	if err != nil {
		h.respondError(c, "Failed to send order to production", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
