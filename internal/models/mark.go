package models

// Mark is one of the five attendance outcomes written into report cells.
type Mark string

const (
	MarkNone       Mark = ""
	MarkPresent    Mark = "Д"
	MarkAbsent     Mark = "Н"
	MarkExcused    Mark = "П"
	MarkSickLeave  Mark = "Б"
	MarkNotMyGroup Mark = "НМГ"
)

// MarkFromOptions maps a poll answer's option indices to a mark. Only the
// first index counts; anything outside the five known options, or a
// retracted vote, yields MarkNone.
func MarkFromOptions(optionIDs []int) Mark {
	if len(optionIDs) == 0 {
		return MarkNone
	}
	switch optionIDs[0] {
	case 0:
		return MarkPresent
	case 1:
		return MarkAbsent
	case 2:
		return MarkExcused
	case 3:
		return MarkSickLeave
	case 4:
		return MarkNotMyGroup
	default:
		return MarkNone
	}
}
