package telegram

import "sync"

const (
	StateNone = ""

	// registration dialog
	StateLastName  = "reg_last_name"
	StateFirstName = "reg_first_name"

	// discipline management dialog
	StateDisciplineName  = "disc_full_name"
	StateDisciplineAlias = "disc_alias"
	StateDisciplineType  = "disc_class_type"
)

// discipline menu actions carried through the dialog
const (
	ActionSetAlias = "set_alias"
	ActionSetNMG   = "set_nmg"
	ActionExclude  = "exclude"
)

type UserState struct {
	State    string
	LastName string // collected during registration
	Action   string // discipline menu action
	FullName string // discipline being edited
}

type StateManager struct {
	mu    sync.RWMutex
	users map[int64]*UserState
}

func NewStateManager() *StateManager {
	return &StateManager{
		users: make(map[int64]*UserState),
	}
}

func (m *StateManager) Get(userID int64) *UserState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.users[userID]
	if !ok {
		return &UserState{}
	}
	cp := *s
	return &cp
}

func (m *StateManager) Set(userID int64, state *UserState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = state
}

func (m *StateManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
}

func (m *StateManager) UpdateField(userID int64, fn func(s *UserState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.users[userID]
	if !ok {
		s = &UserState{}
		m.users[userID] = s
	}
	fn(s)
}
