package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"arns/native/common"
	"arns/storage"
)

// StoreState captures the subset of state manager capabilities required by the
// parameter helpers.
type StoreState interface {
	ParamStoreSet(name string, value []byte) error
	ParamStoreGet(name string) ([]byte, bool, error)
}

// Store provides typed accessors for governance-controlled parameters.
type Store struct {
	state StoreState
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// SetPauses persists the supplied pause configuration under the canonical
// parameter store key. Values are marshalled as JSON to align with governance
// proposal payloads.
func (s *Store) SetPauses(pauses common.StaticPauses) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(pauses)
	if err != nil {
		return fmt.Errorf("params: encode pauses: %w", err)
	}
	return state.ParamStoreSet(ParamsKeyPauses, encoded)
}

// Pauses loads the persisted pause configuration. The boolean reports whether
// a configuration was stored.
func (s *Store) Pauses() (common.StaticPauses, bool, error) {
	state, err := s.withState()
	if err != nil {
		return nil, false, err
	}
	raw, ok, err := state.ParamStoreGet(ParamsKeyPauses)
	if err != nil {
		return nil, false, err
	}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return nil, false, nil
	}
	var pauses common.StaticPauses
	if err := json.Unmarshal(raw, &pauses); err != nil {
		return nil, false, fmt.Errorf("params: decode pauses: %w", err)
	}
	return pauses, true, nil
}

// ResolvePauses returns the persisted toggles, seeding the store with
// fallback on first use so later runs keep governance overrides.
func (s *Store) ResolvePauses(fallback common.StaticPauses) (common.StaticPauses, error) {
	pauses, ok, err := s.Pauses()
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := s.SetPauses(fallback); err != nil {
			return nil, err
		}
		pauses = fallback
	}
	if pauses == nil {
		pauses = common.StaticPauses{}
	}
	return pauses, nil
}

// DBState stores parameters in a key/value database under a "params:" prefix.
type DBState struct {
	db storage.Database
}

func NewDBState(db storage.Database) *DBState {
	return &DBState{db: db}
}

func (d *DBState) ParamStoreSet(name string, value []byte) error {
	return d.db.Put(paramKey(name), value)
}

func (d *DBState) ParamStoreGet(name string) ([]byte, bool, error) {
	value, err := d.db.Get(paramKey(name))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func paramKey(name string) []byte {
	return []byte("params:" + name)
}
