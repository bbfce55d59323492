package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	year, month, err := parsePeriod("2025-3")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 3, month)

	year, month, err = parsePeriod("2024-12")
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 12, month)

	for _, bad := range []string{"", "2025", "2025-0", "2025-13", "год-март", "2025-март"} {
		_, _, err := parsePeriod(bad)
		assert.Error(t, err, "period %q", bad)
	}
}

func TestCapitalizeName(t *testing.T) {
	assert.Equal(t, "Иванов", capitalizeName("иВАНОВ"))
	assert.Equal(t, "Иванов", capitalizeName("  иванов  "))
	assert.Equal(t, "Ёлкин", capitalizeName("ёлкин"))
	assert.Equal(t, "", capitalizeName("   "))
}

func TestNameRegex(t *testing.T) {
	assert.True(t, nameRegex.MatchString("Иванов"))
	assert.True(t, nameRegex.MatchString("Салтыков-Щедрин"))
	assert.True(t, nameRegex.MatchString("Ёлкин"))

	assert.False(t, nameRegex.MatchString("Ivanov"))
	assert.False(t, nameRegex.MatchString("Иванов Иван"))
	assert.False(t, nameRegex.MatchString(""))
}

func TestExtractQuoted(t *testing.T) {
	assert.Equal(t,
		[]string{"Введение в математический анализ"},
		extractQuoted(`дисциплина "Введение в математический анализ" пожалуйста`))

	assert.Equal(t, []string{"а", "б"}, extractQuoted(`"а" и "б"`))
	assert.Empty(t, extractQuoted("без кавычек"))
	assert.Empty(t, extractQuoted(`"незакрытая`))
}

func TestIsCommand(t *testing.T) {
	msg := &Message{
		Text: "/start",
		Entities: []MessageEntity{
			{Type: "bot_command", Offset: 0, Length: 6},
		},
	}
	assert.True(t, isCommand(msg, "start"))
	assert.False(t, isCommand(msg, "help"))

	// addressed form used in groups
	mention := &Message{
		Text: "/start@attendance_bot",
		Entities: []MessageEntity{
			{Type: "bot_command", Offset: 0, Length: 21},
		},
	}
	assert.True(t, isCommand(mention, "start"))

	// command mentioned mid-sentence is not a command invocation
	mid := &Message{
		Text: "попробуй /start",
		Entities: []MessageEntity{
			{Type: "bot_command", Offset: 9, Length: 6},
		},
	}
	assert.False(t, isCommand(mid, "start"))

	assert.False(t, isCommand(&Message{Text: "/start"}, "start"))
}

func TestCommandArgs(t *testing.T) {
	assert.Equal(t, "2025-03", commandArgs("/export_attendance 2025-03"))
	assert.Equal(t, "", commandArgs("/export_attendance"))
	assert.Equal(t, "a b", commandArgs("/cmd a b"))
}

func TestStateManager(t *testing.T) {
	sm := NewStateManager()

	assert.Equal(t, StateNone, sm.Get(1).State)

	sm.Set(1, &UserState{State: StateLastName, LastName: "Иванов"})
	got := sm.Get(1)
	assert.Equal(t, StateLastName, got.State)
	assert.Equal(t, "Иванов", got.LastName)

	// Get hands out a copy, mutations must not leak back
	got.LastName = "Петров"
	assert.Equal(t, "Иванов", sm.Get(1).LastName)

	sm.Clear(1)
	assert.Equal(t, StateNone, sm.Get(1).State)
}
