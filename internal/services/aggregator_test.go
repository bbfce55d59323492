package services

import (
	"testing"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCache struct {
	calls []models.ResponseEntry
	hit   bool
}

func (c *recordingCache) AppendResponse(pollID string, entry models.ResponseEntry) bool {
	c.calls = append(c.calls, entry)
	return c.hit
}

func TestRecordResponsePersistsThenMirrors(t *testing.T) {
	polls := NewPollService(newTestDB(t))
	require.NoError(t, polls.SaveActive(newActivePoll("p1", 100)))

	cache := &recordingCache{hit: true}
	agg := NewAggregator(polls, cache)

	agg.RecordResponse("p1", "42", []int{1}, "Пётр", "Иванов", "@petya")

	active, err := polls.ActivePolls()
	require.NoError(t, err)
	require.Len(t, active, 1)

	entries, err := models.DecodeResponses(active[0].Responses)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "42", entries[0].UserID)
	assert.Equal(t, []int{1}, entries[0].OptionIDs)
	assert.Equal(t, "@petya", entries[0].Username)

	require.Len(t, cache.calls, 1)
	assert.Equal(t, "42", cache.calls[0].UserID)
}

func TestRecordResponseUnknownPollSkipsCache(t *testing.T) {
	polls := NewPollService(newTestDB(t))
	cache := &recordingCache{}
	agg := NewAggregator(polls, cache)

	// must not panic and must not touch the cache
	agg.RecordResponse("nope", "42", []int{0}, "Пётр", "Иванов", "")

	assert.Empty(t, cache.calls)
}

func TestRecordResponseWithoutCache(t *testing.T) {
	polls := NewPollService(newTestDB(t))
	require.NoError(t, polls.SaveActive(newActivePoll("p1", 100)))

	agg := NewAggregator(polls, nil)
	agg.RecordResponse("p1", "42", nil, "", "Иванов", "")

	active, err := polls.ActivePolls()
	require.NoError(t, err)
	entries, err := models.DecodeResponses(active[0].Responses)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].OptionIDs)
}
