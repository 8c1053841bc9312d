package state

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"arns/storage"
)

var (
	headKey        = []byte("registry:head")
	snapshotPrefix = []byte("registry:snapshot:")
)

// ErrNoSnapshot is returned when the store has never been written.
var ErrNoSnapshot = errors.New("state: no registry snapshot stored")

func snapshotKey(height uint64) []byte {
	key := make([]byte, len(snapshotPrefix)+8)
	copy(key, snapshotPrefix)
	binary.BigEndian.PutUint64(key[len(snapshotPrefix):], height)
	return key
}

// Store persists registry snapshots keyed by block height plus a head pointer
// to the most recent one.
type Store struct {
	db     storage.Database
	logger *slog.Logger
}

// NewStore wraps db. A nil logger falls back to slog.Default().
func NewStore(db storage.Database, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With(slog.String("component", "registry-store"))}
}

// Save writes the snapshot for height and moves the head pointer. It returns
// the snapshot digest.
func (s *Store) Save(height uint64, r *Registry) ([32]byte, error) {
	encoded, err := Encode(r)
	if err != nil {
		return [32]byte{}, err
	}
	if err := s.db.Put(snapshotKey(height), encoded); err != nil {
		return [32]byte{}, fmt.Errorf("state: write snapshot %d: %w", height, err)
	}
	var head [8]byte
	binary.BigEndian.PutUint64(head[:], height)
	if err := s.db.Put(headKey, head[:]); err != nil {
		return [32]byte{}, fmt.Errorf("state: write head: %w", err)
	}
	digest, err := Digest(r)
	if err != nil {
		return [32]byte{}, err
	}
	s.logger.Info("registry snapshot saved",
		slog.Uint64("height", height),
		slog.Int("bytes", len(encoded)),
		slog.String("digest", hex.EncodeToString(digest[:])))
	return digest, nil
}

// Latest loads the snapshot the head pointer refers to.
func (s *Store) Latest() (*Registry, uint64, error) {
	head, err := s.db.Get(headKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, 0, ErrNoSnapshot
	}
	if err != nil {
		return nil, 0, err
	}
	if len(head) != 8 {
		return nil, 0, fmt.Errorf("state: corrupt head pointer")
	}
	height := binary.BigEndian.Uint64(head)
	r, err := s.AtHeight(height)
	if err != nil {
		return nil, 0, err
	}
	return r, height, nil
}

// AtHeight loads the snapshot written for height.
func (s *Store) AtHeight(height uint64) (*Registry, error) {
	data, err := s.db.Get(snapshotKey(height))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w at height %d", ErrNoSnapshot, height)
	}
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Heights lists the stored snapshot heights in ascending order.
func (s *Store) Heights() ([]uint64, error) {
	keys, err := s.db.Keys(snapshotPrefix)
	if err != nil {
		return nil, err
	}
	heights := make([]uint64, 0, len(keys))
	for _, key := range keys {
		if len(key) != len(snapshotPrefix)+8 {
			continue
		}
		heights = append(heights, binary.BigEndian.Uint64(key[len(snapshotPrefix):]))
	}
	return heights, nil
}

// Prune drops every snapshot below keepFrom. The head is never pruned.
func (s *Store) Prune(keepFrom uint64) (int, error) {
	if head, err := s.db.Get(headKey); err == nil && len(head) == 8 {
		if h := binary.BigEndian.Uint64(head); keepFrom > h {
			keepFrom = h
		}
	}
	heights, err := s.Heights()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, height := range heights {
		if height >= keepFrom {
			break
		}
		if err := s.db.Delete(snapshotKey(height)); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("registry snapshots pruned", slog.Int("removed", removed), slog.Uint64("keep_from", keepFrom))
	}
	return removed, nil
}
