package dotdir

import (
	"errors"
	"time"
)

const stateFile = "state.toml"

// State is what the CLI remembers between runs.
type State struct {
	LastRecord *LastRecord `toml:"last_record,omitempty"`
}

// LastRecord is the most recent record streamed by `thoughtstream reframe`,
// so that `records get` can show it without an id.
type LastRecord struct {
	ID        string    `toml:"id"`
	Prompt    string    `toml:"prompt,omitempty"`
	Status    string    `toml:"status,omitempty"`
	CreatedAt time.Time `toml:"created_at"`
}

// LoadState reads state.toml. A missing file is an empty State.
func (m *Manager) LoadState(overrideDir string) (*State, error) {
	path, err := m.Path(overrideDir, stateFile)
	if err != nil {
		return nil, err
	}

	state := &State{}
	if _, err := ReadTOML(path, state); err != nil {
		return nil, err
	}
	return state, nil
}

// SaveState writes state.toml.
func (m *Manager) SaveState(state *State, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil state")
	}

	path, err := m.Path(overrideDir, stateFile)
	if err != nil {
		return err
	}
	return WriteTOML(path, state)
}

// LoadLastRecord returns nil, nil when nothing has been streamed yet.
func (m *Manager) LoadLastRecord(overrideDir string) (*LastRecord, error) {
	state, err := m.LoadState(overrideDir)
	if err != nil {
		return nil, err
	}
	return state.LastRecord, nil
}

func (m *Manager) SaveLastRecord(last *LastRecord, overrideDir string) error {
	if last == nil {
		return errors.New("cannot save nil last record")
	}
	return m.updateState(overrideDir, func(s *State) { s.LastRecord = last })
}

func (m *Manager) ClearLastRecord(overrideDir string) error {
	return m.updateState(overrideDir, func(s *State) { s.LastRecord = nil })
}

func (m *Manager) updateState(overrideDir string, fn func(*State)) error {
	state, err := m.LoadState(overrideDir)
	if err != nil {
		return err
	}
	fn(state)
	return m.SaveState(state, overrideDir)
}
