package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkFromOptions(t *testing.T) {
	assert.Equal(t, MarkPresent, MarkFromOptions([]int{0}))
	assert.Equal(t, MarkAbsent, MarkFromOptions([]int{1}))
	assert.Equal(t, MarkExcused, MarkFromOptions([]int{2}))
	assert.Equal(t, MarkSickLeave, MarkFromOptions([]int{3}))
	assert.Equal(t, MarkNotMyGroup, MarkFromOptions([]int{4}))

	// retracted vote and unknown indices stay blank
	assert.Equal(t, MarkNone, MarkFromOptions(nil))
	assert.Equal(t, MarkNone, MarkFromOptions([]int{}))
	assert.Equal(t, MarkNone, MarkFromOptions([]int{5}))
	assert.Equal(t, MarkNone, MarkFromOptions([]int{-1}))
}

func TestResponsesRoundTrip(t *testing.T) {
	entries := []ResponseEntry{
		{UserID: "1", OptionIDs: []int{0}, FirstName: "Пётр", LastName: "Иванов", Username: "@petya"},
		{UserID: "2", OptionIDs: nil},
	}

	encoded, err := EncodeResponses(entries)
	assert.NoError(t, err)

	decoded, err := DecodeResponses(encoded)
	assert.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestDecodeResponsesEmptyAndCorrupt(t *testing.T) {
	decoded, err := DecodeResponses("")
	assert.NoError(t, err)
	assert.Nil(t, decoded)

	decoded, err = DecodeResponses("[]")
	assert.NoError(t, err)
	assert.Empty(t, decoded)

	_, err = DecodeResponses("{broken")
	assert.Error(t, err)
}

func TestEncodeResponsesNil(t *testing.T) {
	encoded, err := EncodeResponses(nil)
	assert.NoError(t, err)
	assert.Equal(t, "[]", encoded)
}
