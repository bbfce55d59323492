package models

import (
	"encoding/json"
	"time"
)

// ResponseEntry is one poll answer as it is appended to the poll's JSON
// response log. OptionIDs carries 0 or 1 indices; an empty list means the
// user retracted their vote.
type ResponseEntry struct {
	UserID    string `json:"user_id"`
	OptionIDs []int  `json:"option_ids"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// ActivePoll is a poll that is still open in the group chat. Responses is an
// append-only JSON array of ResponseEntry.
type ActivePoll struct {
	PollID    string    `gorm:"primaryKey;size:64" json:"poll_id"`
	MessageID int64     `gorm:"uniqueIndex" json:"message_id"`
	Date      string    `gorm:"size:16" json:"date"`
	StartTime string    `gorm:"size:8" json:"start_time"`
	EndTime   string    `gorm:"size:8" json:"end_time"`
	ClassName string    `gorm:"size:255" json:"class_name"`
	Prof      string    `gorm:"size:255" json:"prof"`
	Room      string    `gorm:"size:64" json:"room"`
	ClassType string    `gorm:"size:128" json:"class_type"`
	CloseTime time.Time `json:"close_time"`
	Responses string    `gorm:"not null;default:'[]'" json:"responses"`
}

// PastPoll is an archived poll. Same shape as ActivePoll; rows become
// immutable once archived and are the only input to report synthesis.
type PastPoll struct {
	PollID    string    `gorm:"primaryKey;size:64" json:"poll_id"`
	MessageID int64     `gorm:"uniqueIndex" json:"message_id"`
	Date      string    `gorm:"size:16" json:"date"`
	StartTime string    `gorm:"size:8" json:"start_time"`
	EndTime   string    `gorm:"size:8" json:"end_time"`
	ClassName string    `gorm:"size:255" json:"class_name"`
	Prof      string    `gorm:"size:255" json:"prof"`
	Room      string    `gorm:"size:64" json:"room"`
	ClassType string    `gorm:"size:128" json:"class_type"`
	CloseTime time.Time `json:"close_time"`
	Responses string    `gorm:"not null;default:'[]'" json:"responses"`
}

// DecodeResponses parses a responses log column.
func DecodeResponses(raw string) ([]ResponseEntry, error) {
	if raw == "" {
		return nil, nil
	}
	var entries []ResponseEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// EncodeResponses serializes a responses log column.
func EncodeResponses(entries []ResponseEntry) (string, error) {
	if entries == nil {
		entries = []ResponseEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
