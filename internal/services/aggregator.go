package services

import (
	"log"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"
)

// LiveCache is the scheduler-owned view of still-open polls. AppendResponse
// reports whether the poll was present; the cache never grows from here.
type LiveCache interface {
	AppendResponse(pollID string, entry models.ResponseEntry) bool
}

// Aggregator ingests poll answer events. The durable log is authoritative
// and is written first; the live cache is updated afterwards as a
// best-effort hint so an open poll's view stays current.
type Aggregator struct {
	polls *PollService
	cache LiveCache
}

func NewAggregator(polls *PollService, cache LiveCache) *Aggregator {
	return &Aggregator{polls: polls, cache: cache}
}

// RecordResponse persists one answer event. Answer delivery is at-least-once
// and best-effort: a storage failure is logged and swallowed so the update
// loop never aborts on a lost answer.
func (a *Aggregator) RecordResponse(pollID, userID string, optionIDs []int, firstName, lastName, username string) {
	entry := models.ResponseEntry{
		UserID:    userID,
		OptionIDs: optionIDs,
		FirstName: firstName,
		LastName:  lastName,
		Username:  username,
	}

	if err := a.polls.AppendResponse(pollID, entry); err != nil {
		log.Printf("record response for poll %s: %v", pollID, err)
		return
	}

	if a.cache != nil {
		a.cache.AppendResponse(pollID, entry)
	}
}
