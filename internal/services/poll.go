package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"

	"gorm.io/gorm"
)

// PollService owns the durable poll store. Appending to a response log is a
// read-modify-write on a serialized JSON column, so appends for one poll are
// serialized by a per-poll mutex; different polls do not block each other.
type PollService struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPollService(db *gorm.DB) *PollService {
	return &PollService{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *PollService) lockFor(pollID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[pollID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[pollID] = l
	}
	return l
}

func (s *PollService) SaveActive(poll *models.ActivePoll) error {
	return s.db.Save(poll).Error
}

func (s *PollService) ActivePolls() ([]models.ActivePoll, error) {
	var polls []models.ActivePoll
	if err := s.db.Find(&polls).Error; err != nil {
		return nil, err
	}
	return polls, nil
}

// AppendResponse appends one answer to the poll's response log. The entry is
// appended unconditionally; repeated answers from the same user stack up in
// the log and the report resolves them last-write-wins.
func (s *PollService) AppendResponse(pollID string, entry models.ResponseEntry) error {
	l := s.lockFor(pollID)
	l.Lock()
	defer l.Unlock()

	var poll models.ActivePoll
	if err := s.db.Where("poll_id = ?", pollID).First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("poll %s not found", pollID)
		}
		return err
	}

	entries, err := models.DecodeResponses(poll.Responses)
	if err != nil {
		// corrupt log: start over rather than lose the new answer
		entries = nil
	}
	entries = append(entries, entry)

	encoded, err := models.EncodeResponses(entries)
	if err != nil {
		return err
	}

	return s.db.Model(&models.ActivePoll{}).
		Where("poll_id = ?", pollID).
		Update("responses", encoded).Error
}

// Archive moves a closed poll from the active table to the past table.
// Archiving an unknown poll is a no-op.
func (s *PollService) Archive(pollID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var poll models.ActivePoll
		if err := tx.Where("poll_id = ?", pollID).First(&poll).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		past := models.PastPoll(poll)
		if err := tx.Save(&past).Error; err != nil {
			return err
		}
		return tx.Where("poll_id = ?", pollID).Delete(&models.ActivePoll{}).Error
	})
}

// Delete removes a poll from both tables.
func (s *PollService) Delete(pollID string) error {
	if err := s.db.Where("poll_id = ?", pollID).Delete(&models.ActivePoll{}).Error; err != nil {
		return err
	}
	return s.db.Where("poll_id = ?", pollID).Delete(&models.PastPoll{}).Error
}

// PastByMonth returns the archived polls whose close time falls inside the
// given month, ordered by date and start time.
func (s *PollService) PastByMonth(year, month int) ([]models.PastPoll, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, 0)

	var polls []models.PastPoll
	err := s.db.
		Where("close_time >= ? AND close_time < ?", start, end).
		Order("date, start_time").
		Find(&polls).Error
	if err != nil {
		return nil, err
	}
	return polls, nil
}
