package api

import (
	"net/http"

	"furniture-erp/internal/auth"
	"furniture-erp/internal/production"

	"github.com/gin-gonic/gin"
)

type scheduleRequest struct {
	ScheduledDate string `json:"scheduled_date" binding:"required"`
}

type replaceFragmentsRequest struct {
	ProductID string             `json:"product_id" binding:"required"`
	Fragments []production.Draft `json:"fragments"`
}

type splitRequest struct {
	Products []production.SplitRequest `json:"products"`
}

func (h *Handler) agendaMonth(c *gin.Context) {
	month, err := h.agenda.Month(c.Request.Context(), c.Query("month"))
	if err != nil {
		h.respondError(c, "Failed to load agenda", err)
		return
	}
	c.JSON(http.StatusOK, month)
}

// pendingApprovals lists orders for the approval screen. The default status
// filter is awaiting_approval.
func (h *Handler) pendingApprovals(c *gin.Context) {
	var filter production.PendingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query",
			"details": err.Error(),
		})
		return
	}

	orders, err := h.agenda.Pending(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, "Failed to list pending orders", err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) approveOrder(c *gin.Context) {
	order, err := h.agenda.Approve(c.Request.Context(), c.Param("id"), auth.HasScope(c, auth.ScopeApproveOrders))
	if err != nil {
		h.respondError(c, "Failed to approve order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) advanceStage(c *gin.Context) {
	order, err := h.agenda.AdvanceStage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to advance production stage", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) rescheduleOrder(c *gin.Context) {
	var req scheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := h.agenda.ParseScheduleDate(req.ScheduledDate)
	if err != nil {
		h.respondError(c, "Invalid scheduled date", err)
		return
	}

	order, err := h.agenda.RescheduleOrder(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		h.respondError(c, "Failed to reschedule order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) rescheduleFragment(c *gin.Context) {
	var req scheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := h.agenda.ParseScheduleDate(req.ScheduledDate)
	if err != nil {
		h.respondError(c, "Invalid scheduled date", err)
		return
	}

	order, err := h.agenda.RescheduleFragment(c.Request.Context(), c.Param("id"), c.Param("fragmentId"), date)
	if err != nil {
		h.respondError(c, "Failed to reschedule fragment", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) fragmentPlan(c *gin.Context) {
	plan, err := h.fragments.Plan(c.Request.Context(), c.Param("id"), c.Query("product_id"))
	if err != nil {
		h.respondError(c, "Failed to load fragment plan", err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *Handler) fragmentStatus(c *gin.Context) {
	status, err := h.fragments.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, "Failed to load fragment status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) replaceFragments(c *gin.Context) {
	var req replaceFragmentsRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.fragments.Replace(c.Request.Context(), c.Param("id"), req.ProductID, req.Fragments)
	if err != nil {
		h.respondError(c, "Failed to save fragments", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) clearFragments(c *gin.Context) {
	order, err := h.fragments.Clear(c.Request.Context(), c.Param("id"), c.Query("product_id"))
	if err != nil {
		h.respondError(c, "Failed to clear fragments", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) splitOrder(c *gin.Context) {
	var req splitRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.fragments.Split(c.Request.Context(), c.Param("id"), req.Products)
	if err != nil {
		h.respondError(c, "Failed to split order", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}
