package http

import (
	"bytes"
	"fmt"
	"net/http"

	"bilgi-quiz-service/internal/app"
	"bilgi-quiz-service/internal/export"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StatisticsHandler struct {
	service *app.StatisticsService
}

func NewStatisticsHandler(service *app.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{service: service}
}

func (h *StatisticsHandler) Get(c *gin.Context) {
	st, err := h.service.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *StatisticsHandler) Overview(c *gin.Context) {
	ov, err := h.service.Overview(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (h *StatisticsHandler) Reset(c *gin.Context) {
	st, err := h.service.Reset(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Export serves the statistics workbook as an attachment.
func (h *StatisticsHandler) Export(c *gin.Context) {
	userID := c.Param("userId")
	st, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteStatistics(&buf, st); err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="statistics-%s.xlsx"`, userID))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
