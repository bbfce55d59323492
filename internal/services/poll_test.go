package services

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite3")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps sqlite from returning "database is locked"
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.UserProfile{},
		&models.ActivePoll{},
		&models.PastPoll{},
		&models.DisciplineSetting{},
	))
	return db
}

func newActivePoll(pollID string, messageID int64) *models.ActivePoll {
	return &models.ActivePoll{
		PollID:    pollID,
		MessageID: messageID,
		Date:      "01.03.2025",
		StartTime: "09:00",
		EndTime:   "10:30",
		ClassName: "Анализ",
		Prof:      "Иванов Иван",
		Room:      "312",
		ClassType: "Лекция",
		CloseTime: time.Date(2025, 3, 1, 23, 59, 0, 0, time.Local),
		Responses: "[]",
	}
}

func TestAppendResponsePreservesOrder(t *testing.T) {
	svc := NewPollService(newTestDB(t))
	require.NoError(t, svc.SaveActive(newActivePoll("p1", 100)))

	for i := 0; i < 5; i++ {
		entry := models.ResponseEntry{UserID: fmt.Sprintf("%d", i), OptionIDs: []int{0}}
		require.NoError(t, svc.AppendResponse("p1", entry))
	}

	polls, err := svc.ActivePolls()
	require.NoError(t, err)
	require.Len(t, polls, 1)

	entries, err := models.DecodeResponses(polls[0].Responses)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("%d", i), e.UserID)
	}
}

func TestAppendResponseConcurrent(t *testing.T) {
	svc := NewPollService(newTestDB(t))
	require.NoError(t, svc.SaveActive(newActivePoll("p1", 100)))

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			entry := models.ResponseEntry{UserID: fmt.Sprintf("%d", i), OptionIDs: []int{0}}
			assert.NoError(t, svc.AppendResponse("p1", entry))
		}(i)
	}
	wg.Wait()

	polls, err := svc.ActivePolls()
	require.NoError(t, err)
	require.Len(t, polls, 1)

	entries, err := models.DecodeResponses(polls[0].Responses)
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestAppendResponseUnknownPoll(t *testing.T) {
	svc := NewPollService(newTestDB(t))

	err := svc.AppendResponse("nope", models.ResponseEntry{UserID: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAppendResponseRecoversCorruptLog(t *testing.T) {
	db := newTestDB(t)
	svc := NewPollService(db)

	poll := newActivePoll("p1", 100)
	poll.Responses = "{broken"
	require.NoError(t, svc.SaveActive(poll))

	require.NoError(t, svc.AppendResponse("p1", models.ResponseEntry{UserID: "1", OptionIDs: []int{0}}))

	polls, err := svc.ActivePolls()
	require.NoError(t, err)
	entries, err := models.DecodeResponses(polls[0].Responses)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].UserID)
}

func TestArchiveMovesPoll(t *testing.T) {
	db := newTestDB(t)
	svc := NewPollService(db)

	require.NoError(t, svc.SaveActive(newActivePoll("p1", 100)))
	require.NoError(t, svc.AppendResponse("p1", models.ResponseEntry{UserID: "1", OptionIDs: []int{0}}))

	require.NoError(t, svc.Archive("p1"))

	active, err := svc.ActivePolls()
	require.NoError(t, err)
	assert.Empty(t, active)

	var past models.PastPoll
	require.NoError(t, db.Where("poll_id = ?", "p1").First(&past).Error)
	entries, err := models.DecodeResponses(past.Responses)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].UserID)
}

func TestArchiveUnknownPollIsNoop(t *testing.T) {
	svc := NewPollService(newTestDB(t))
	assert.NoError(t, svc.Archive("nope"))
}

func TestDeleteRemovesFromBothTables(t *testing.T) {
	db := newTestDB(t)
	svc := NewPollService(db)

	require.NoError(t, svc.SaveActive(newActivePoll("p1", 100)))
	require.NoError(t, db.Save(&models.PastPoll{PollID: "p2", MessageID: 200, Responses: "[]"}).Error)

	require.NoError(t, svc.Delete("p1"))
	require.NoError(t, svc.Delete("p2"))

	active, err := svc.ActivePolls()
	require.NoError(t, err)
	assert.Empty(t, active)

	var count int64
	require.NoError(t, db.Model(&models.PastPoll{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPastByMonthWindow(t *testing.T) {
	db := newTestDB(t)
	svc := NewPollService(db)

	mkPast := func(pollID string, messageID int64, date, start string, closeTime time.Time) {
		require.NoError(t, db.Save(&models.PastPoll{
			PollID:    pollID,
			MessageID: messageID,
			Date:      date,
			StartTime: start,
			EndTime:   "10:30",
			ClassName: "Анализ",
			Prof:      "Иванов Иван",
			CloseTime: closeTime,
			Responses: "[]",
		}).Error)
	}

	mkPast("feb", 1, "28.02.2025", "09:00", time.Date(2025, 2, 28, 23, 59, 0, 0, time.Local))
	mkPast("mar2", 2, "15.03.2025", "13:20", time.Date(2025, 3, 15, 23, 59, 0, 0, time.Local))
	mkPast("mar1", 3, "15.03.2025", "09:00", time.Date(2025, 3, 15, 23, 59, 0, 0, time.Local))
	mkPast("apr", 4, "01.04.2025", "09:00", time.Date(2025, 4, 1, 23, 59, 0, 0, time.Local))

	rows, err := svc.PastByMonth(2025, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "mar1", rows[0].PollID)
	assert.Equal(t, "mar2", rows[1].PollID)

	rows, err = svc.PastByMonth(2025, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
