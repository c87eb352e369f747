// Package conversation tracks which multi-step dialog each chat user is in.
package conversation

import (
	"errors"
	"sync"
	"time"
)

type Mode string

const (
	Idle             Mode = "idle"
	AwaitingLogin    Mode = "awaiting_login"
	AwaitingPassword Mode = "awaiting_password"
	AwaitingSemester Mode = "awaiting_semester"
	AwaitingDate     Mode = "awaiting_date"
)

// Purpose says which report a semester choice is for.
type Purpose string

const (
	PurposeGrades     Purpose = "grades"
	PurposeTranscript Purpose = "transcript"
)

// ErrUnexpectedInput is returned when input does not fit the current mode.
// The dialog is reset to Idle before it is returned.
var ErrUnexpectedInput = errors.New("conversation: unexpected input")

// DefaultTTL is how long an unanswered dialog stays open.
const DefaultTTL = 15 * time.Minute

type State struct {
	Mode    Mode
	Purpose Purpose
	// Login is the scratch buffer captured before the password prompt.
	Login     string
	UpdatedAt time.Time
}

type Machine struct {
	mu     sync.RWMutex
	states map[int64]State
	ttl    time.Duration
	now    func() time.Time
}

func NewMachine(ttl time.Duration) *Machine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Machine{
		states: make(map[int64]State),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Current returns the user's dialog state; Idle when none is open or it expired.
func (m *Machine) Current(userID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current(userID)
}

func (m *Machine) current(userID int64) State {
	s, ok := m.states[userID]
	if !ok || m.now().Sub(s.UpdatedAt) > m.ttl {
		return State{Mode: Idle}
	}
	return s
}

func (m *Machine) set(userID int64, s State) {
	s.UpdatedAt = m.now()
	m.states[userID] = s
}

func (m *Machine) BeginLogin(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.set(userID, State{Mode: AwaitingLogin})
}

// SubmitLogin captures the login and moves on to the password prompt.
func (m *Machine) SubmitLogin(userID int64, login string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current(userID).Mode != AwaitingLogin || login == "" {
		delete(m.states, userID)
		return ErrUnexpectedInput
	}
	m.set(userID, State{Mode: AwaitingPassword, Login: login})
	return nil
}

// TakePassword closes the login dialog and returns the captured login.
func (m *Machine) TakePassword(userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.current(userID)
	delete(m.states, userID)
	if s.Mode != AwaitingPassword || s.Login == "" {
		return "", ErrUnexpectedInput
	}
	return s.Login, nil
}

func (m *Machine) BeginSemesterChoice(userID int64, purpose Purpose) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.set(userID, State{Mode: AwaitingSemester, Purpose: purpose})
}

// TakeSemesterChoice closes the semester dialog and returns what it was for.
func (m *Machine) TakeSemesterChoice(userID int64) (Purpose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.current(userID)
	delete(m.states, userID)
	if s.Mode != AwaitingSemester {
		return "", ErrUnexpectedInput
	}
	return s.Purpose, nil
}

func (m *Machine) BeginDateEntry(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.set(userID, State{Mode: AwaitingDate})
}

// TakeDateEntry closes the date dialog.
func (m *Machine) TakeDateEntry(userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.current(userID)
	delete(m.states, userID)
	if s.Mode != AwaitingDate {
		return ErrUnexpectedInput
	}
	return nil
}

func (m *Machine) Reset(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, userID)
}
