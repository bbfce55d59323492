package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/services"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves the same monthly attendance workbook as the chat
// command, for admins who prefer curl over Telegram.
type ReportHandler struct {
	polls   *services.PollService
	reports *services.ReportService
}

func NewReportHandler(polls *services.PollService, reports *services.ReportService) *ReportHandler {
	return &ReportHandler{polls: polls, reports: reports}
}

// GetReport handles GET /api/v1/report/:period where period is "YYYY-M".
// "current" selects the running month.
func (h *ReportHandler) GetReport(c *gin.Context) {
	period := c.Param("period")

	now := time.Now()
	year, month := now.Year(), int(now.Month())
	if period != "current" {
		var err error
		year, month, err = parsePeriod(period)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "period must be YYYY-M"})
			return
		}
	}

	rows, err := h.polls.PastByMonth(year, month)
	if err != nil {
		log.Printf("load past polls %04d-%02d: %v", year, month, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "report generation failed"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no data for this period"})
		return
	}

	data, err := h.reports.BuildReport(rows)
	if err != nil {
		log.Printf("build report %04d-%02d: %v", year, month, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "report generation failed"})
		return
	}

	filename := h.reports.FileName(year, month)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func parsePeriod(arg string) (int, int, error) {
	parts := strings.SplitN(arg, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad period %q", arg)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad year %q", parts[0])
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("bad month %q", parts[1])
	}
	return year, month, nil
}
