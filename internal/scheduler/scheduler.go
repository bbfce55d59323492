package scheduler

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/config"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/schedule"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/services"
)

// BotClient is the slice of the Telegram client the scheduler needs.
type BotClient interface {
	SendPoll(chatID int64, question string, options []string) (messageID int64, pollID string, err error)
	StopPoll(chatID, messageID int64) error
}

// LivePoll is the in-memory record of a poll that is still open in chat.
// Responses mirrors the persisted JSON log so a "who answered so far" view
// does not need a storage round-trip.
type LivePoll struct {
	PollID    string
	MessageID int64
	Class     schedule.Class
	CloseTime time.Time
	Responses string
}

// Scheduler opens attendance polls shortly before each class and closes and
// archives them after the closure window. It owns the live poll cache.
type Scheduler struct {
	bot         BotClient
	cfg         *config.Config
	polls       *services.PollService
	disciplines *services.DisciplineService
	parser      *schedule.Parser

	mu       sync.Mutex
	active   map[string]*LivePoll // date|start|discipline -> poll
	settings *services.DisciplineSettings

	startTimes []time.Time
	nextFetch  time.Time

	stopCh chan struct{}
}

func NewScheduler(
	bot BotClient,
	cfg *config.Config,
	polls *services.PollService,
	disciplines *services.DisciplineService,
	parser *schedule.Parser,
) *Scheduler {
	return &Scheduler{
		bot:         bot,
		cfg:         cfg,
		polls:       polls,
		disciplines: disciplines,
		parser:      parser,
		active:      make(map[string]*LivePoll),
		settings:    &services.DisciplineSettings{},
		stopCh:      make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.reloadSettings()
	s.loadActivePolls()
	if err := s.parser.Fetch(); err != nil {
		log.Printf("initial schedule fetch: %v", err)
	}
	s.loadStartTimes()
	s.computeNextFetch(time.Now())
	log.Printf("scheduler started, next schedule refresh at %s", s.nextFetch.Format(time.DateTime))

	go s.run()
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			s.refresh(now)
			s.checkAndSendPolls(now)
			s.closeExpiredPolls(now)
		}
	}
}

// AppendResponse mirrors an answer into the live cache. It only updates
// polls that are already cached and reports whether the poll was found;
// entries are never created here.
func (s *Scheduler) AppendResponse(pollID string, entry models.ResponseEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, lp := range s.active {
		if lp.PollID != pollID {
			continue
		}
		entries, err := models.DecodeResponses(lp.Responses)
		if err != nil {
			entries = nil
		}
		entries = append(entries, entry)
		if encoded, err := models.EncodeResponses(entries); err == nil {
			lp.Responses = encoded
		}
		return true
	}
	return false
}

func pollKey(cls schedule.Class) string {
	return fmt.Sprintf("%s|%s|%s", cls.Date, cls.StartTime, cls.ClassName)
}

func (s *Scheduler) reloadSettings() {
	settings, err := s.disciplines.Settings()
	if err != nil {
		log.Printf("load discipline settings: %v", err)
		return
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

func (s *Scheduler) loadActivePolls() {
	polls, err := s.polls.ActivePolls()
	if err != nil {
		log.Printf("load active polls: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = make(map[string]*LivePoll)
	for _, p := range polls {
		cls := schedule.Class{
			Date:      p.Date,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			ClassName: p.ClassName,
			Prof:      p.Prof,
			Room:      p.Room,
			ClassType: p.ClassType,
		}
		s.active[pollKey(cls)] = &LivePoll{
			PollID:    p.PollID,
			MessageID: p.MessageID,
			Class:     cls,
			CloseTime: p.CloseTime,
			Responses: p.Responses,
		}
	}
	log.Printf("loaded %d active polls from storage", len(s.active))
}

func (s *Scheduler) loadStartTimes() {
	times, err := s.parser.StartTimes()
	if err != nil {
		log.Printf("load time groups: %v", err)
		s.startTimes = nil
		return
	}
	s.startTimes = times
}

// computeNextFetch schedules the next timetable refresh shortly before the
// next lesson slot (today's remaining slots, else tomorrow's).
func (s *Scheduler) computeNextFetch(now time.Time) {
	year, month, day := now.Date()
	var candidates []time.Time

	for _, t := range s.startTimes {
		c := time.Date(year, month, day, t.Hour(), t.Minute(), 0, 0, now.Location()).
			Add(-s.cfg.PrefetchOffset)
		if c.After(now) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		tomorrow := now.AddDate(0, 0, 1)
		ty, tm, td := tomorrow.Date()
		for _, t := range s.startTimes {
			candidates = append(candidates,
				time.Date(ty, tm, td, t.Hour(), t.Minute(), 0, 0, now.Location()).
					Add(-s.cfg.PrefetchOffset))
		}
	}

	s.nextFetch = time.Time{}
	for _, c := range candidates {
		if s.nextFetch.IsZero() || c.Before(s.nextFetch) {
			s.nextFetch = c
		}
	}
}

func (s *Scheduler) refresh(now time.Time) {
	if s.nextFetch.IsZero() || now.Before(s.nextFetch) {
		return
	}
	s.reloadSettings()
	if err := s.parser.Fetch(); err != nil {
		log.Printf("schedule refresh: %v", err)
	} else {
		log.Println("schedule and discipline settings refreshed")
	}
	s.computeNextFetch(now)
}

func (s *Scheduler) checkAndSendPolls(now time.Time) {
	today := now.Format("02.01.2006")

	for _, cls := range s.parser.ClassesOn(today) {
		s.mu.Lock()
		_, exists := s.active[pollKey(cls)]
		excluded := s.settings.Excluded[cls.ClassName]
		s.mu.Unlock()
		if exists || excluded {
			continue
		}

		classStart, err := time.ParseInLocation("02.01.2006 15:04",
			cls.Date+" "+cls.StartTime, now.Location())
		if err != nil {
			log.Printf("bad class time %s %s: %v", cls.Date, cls.StartTime, err)
			continue
		}

		until := classStart.Sub(now)
		if until >= 0 && until <= s.cfg.PollWindow {
			s.sendPoll(cls)
		}
	}
}

func (s *Scheduler) sendPoll(cls schedule.Class) {
	s.mu.Lock()
	name := cls.ClassName
	if alias, ok := s.settings.Aliases[cls.ClassName]; ok {
		name = alias
	}
	nmgType, isNMG := s.settings.NotMyGroup[cls.ClassName]
	s.mu.Unlock()

	options := []string{"Да", "Нет", "Пикма", "На больничном"}
	if isNMG && nmgType == cls.ClassType {
		options = append(options, "Не моя группа")
	}

	question := fmt.Sprintf("%s в %s - %s", name, cls.StartTime, cls.EndTime)

	messageID, pollID, err := s.bot.SendPoll(s.cfg.ChatID, question, options)
	if err != nil {
		log.Printf("send poll %s: %v", pollKey(cls), err)
		return
	}

	closeTime := calculateCloseTime(cls, time.Local)
	record := &models.ActivePoll{
		PollID:    pollID,
		MessageID: messageID,
		Date:      cls.Date,
		StartTime: cls.StartTime,
		EndTime:   cls.EndTime,
		ClassName: cls.ClassName,
		Prof:      cls.Prof,
		Room:      cls.Room,
		ClassType: cls.ClassType,
		CloseTime: closeTime,
		Responses: "[]",
	}

	if err := s.polls.SaveActive(record); err != nil {
		log.Printf("persist poll %s: %v", pollID, err)
	}

	s.mu.Lock()
	s.active[pollKey(cls)] = &LivePoll{
		PollID:    pollID,
		MessageID: messageID,
		Class:     cls,
		CloseTime: closeTime,
		Responses: "[]",
	}
	s.mu.Unlock()

	log.Printf("sent poll %s", pollKey(cls))
}

// calculateCloseTime returns 23:59 of the class date; a class that ends
// past midnight closes on the following day.
func calculateCloseTime(cls schedule.Class, loc *time.Location) time.Time {
	date, err := time.ParseInLocation("02.01.2006", cls.Date, loc)
	if err != nil {
		return time.Now().In(loc).Add(24 * time.Hour)
	}

	start, errS := time.Parse("15:04", cls.StartTime)
	end, errE := time.Parse("15:04", cls.EndTime)
	if errS == nil && errE == nil && !end.After(start) {
		date = date.AddDate(0, 0, 1)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 0, 0, loc)
}

func (s *Scheduler) closeExpiredPolls(now time.Time) {
	s.mu.Lock()
	var expired []*LivePoll
	var keys []string
	for key, lp := range s.active {
		if !now.Before(lp.CloseTime) {
			expired = append(expired, lp)
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		delete(s.active, key)
	}
	s.mu.Unlock()

	for _, lp := range expired {
		s.closePoll(lp)
	}
}

func (s *Scheduler) closePoll(lp *LivePoll) {
	err := s.bot.StopPoll(s.cfg.ChatID, lp.MessageID)
	if err != nil {
		msg := err.Error()

		// already stopped in chat: just archive the record
		if strings.Contains(msg, "has already been closed") {
			log.Printf("poll %s already closed: %v", lp.PollID, err)
		} else if strings.Contains(msg, "poll to stop not found") {
			// the poll message was deleted: drop the record entirely
			log.Printf("poll %s message missing, deleting record", lp.PollID)
			if err := s.polls.Delete(lp.PollID); err != nil {
				log.Printf("delete poll %s: %v", lp.PollID, err)
			}
			return
		} else {
			log.Printf("stop poll %s: %v", lp.PollID, err)
			return
		}
	}

	if err := s.polls.Archive(lp.PollID); err != nil {
		log.Printf("archive poll %s: %v", lp.PollID, err)
		return
	}
	log.Printf("closed and archived poll %s", lp.PollID)
}
