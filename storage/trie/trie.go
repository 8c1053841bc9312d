package trie

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	gethtrie "github.com/ethereum/go-ethereum/trie"
)

// Entry is a single key/value leaf. Keys are hashed with keccak256 before
// insertion, matching how account state tries key their leaves.
type Entry struct {
	Key   []byte
	Value []byte
}

// Root computes the Merkle Patricia root over entries using go-ethereum's
// stack trie. The result does not depend on the order of entries. An empty
// set yields the canonical empty root.
func Root(entries []Entry) (common.Hash, error) {
	if len(entries) == 0 {
		return gethtypes.EmptyRootHash, nil
	}
	hashed := make([]Entry, len(entries))
	for i, entry := range entries {
		if len(entry.Value) == 0 {
			return common.Hash{}, fmt.Errorf("trie: empty value for key %x", entry.Key)
		}
		hashed[i] = Entry{Key: crypto.Keccak256(entry.Key), Value: entry.Value}
	}
	// The stack trie requires strictly ascending insertion.
	sort.Slice(hashed, func(i, j int) bool {
		return bytes.Compare(hashed[i].Key, hashed[j].Key) < 0
	})
	st := gethtrie.NewStackTrie(nil)
	for i, entry := range hashed {
		if i > 0 && bytes.Equal(hashed[i-1].Key, entry.Key) {
			return common.Hash{}, fmt.Errorf("trie: duplicate key %x", entry.Key)
		}
		if err := st.Update(entry.Key, entry.Value); err != nil {
			return common.Hash{}, err
		}
	}
	return st.Hash(), nil
}
