package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newReportRouter(t *testing.T) (*gin.Engine, *services.PollService) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.sqlite3")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.UserProfile{}, &models.ActivePoll{}, &models.PastPoll{}))

	polls := services.NewPollService(db)
	reports := services.NewReportService(services.NewUserService(db))
	h := NewReportHandler(polls, reports)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/report/:period", h.GetReport)
	return r, polls
}

func seedPastPoll(t *testing.T, polls *services.PollService, closeTime time.Time) {
	t.Helper()

	encoded, err := models.EncodeResponses([]models.ResponseEntry{
		{UserID: "1", OptionIDs: []int{0}, FirstName: "Петя", LastName: "Иванов"},
	})
	require.NoError(t, err)

	require.NoError(t, polls.SaveActive(&models.ActivePoll{
		PollID: "p1", MessageID: 1,
		Date:      closeTime.Format("02.01.2006"),
		StartTime: "09:00", EndTime: "10:30",
		ClassName: "Анализ", Prof: "Иванов Иван",
		CloseTime: closeTime, Responses: encoded,
	}))
	require.NoError(t, polls.Archive("p1"))
}

func TestGetReportOK(t *testing.T) {
	r, polls := newReportRouter(t)
	seedPastPoll(t, polls, time.Date(2025, 3, 1, 23, 59, 0, 0, time.Local))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/report/2025-3", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance_2025-03.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"01-03-2025"}, f.GetSheetList())
}

func TestGetReportCurrentMonth(t *testing.T) {
	r, polls := newReportRouter(t)
	seedPastPoll(t, polls, time.Now())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/report/current", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	now := time.Now()
	assert.Contains(t, w.Header().Get("Content-Disposition"),
		fmt.Sprintf("attendance_%04d-%02d.xlsx", now.Year(), int(now.Month())))
}

func TestGetReportBadPeriod(t *testing.T) {
	r, _ := newReportRouter(t)

	for _, period := range []string{"март", "2025-13", "2025"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/report/"+period, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "period %q", period)
	}
}

func TestGetReportNoData(t *testing.T) {
	r, _ := newReportRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/report/2020-1", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
