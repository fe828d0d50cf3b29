package api

import (
	"fmt"
	"net/http"
	"time"

	"furniture-erp/internal/report"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// panorama returns the production panorama as JSON, or as a workbook with
// format=xlsx
func (h *Handler) panorama(c *gin.Context) {
	p, err := h.orders.Panorama(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to build panorama", err)
		return
	}

	if c.Query("format") != "xlsx" {
		c.JSON(http.StatusOK, p)
		return
	}

	loc := h.agenda.Location()
	data, err := report.WriteXLSX(p, loc)
	if err != nil {
		h.respondError(c, "Failed to render panorama", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename(time.Now().In(loc))))
	c.Data(http.StatusOK, xlsxContentType, data)
}
