package types

import (
	"fmt"
	"math/big"
	"strings"
)

// RecordType distinguishes time-bounded leases from perpetual purchases.
type RecordType string

const (
	RecordTypeLease    RecordType = "lease"
	RecordTypePermabuy RecordType = "permabuy"
)

// ParseRecordType normalises the supplied record type. An empty value defaults
// to a lease, matching the registry's historical behaviour.
func ParseRecordType(raw string) (RecordType, error) {
	switch RecordType(strings.ToLower(strings.TrimSpace(raw))) {
	case "", RecordTypeLease:
		return RecordTypeLease, nil
	case RecordTypePermabuy:
		return RecordTypePermabuy, nil
	default:
		return "", fmt.Errorf("unknown record type %q", raw)
	}
}

// Record is a registered name.
type Record struct {
	ContractTxID   string     `json:"contractTxId"`
	Type           RecordType `json:"type"`
	StartTimestamp uint64     `json:"startTimestamp"`
	// EndTimestamp is zero for permabuys.
	EndTimestamp  uint64   `json:"endTimestamp,omitempty"`
	Undernames    uint64   `json:"undernames"`
	PurchasePrice *big.Int `json:"purchasePrice"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.PurchasePrice != nil {
		clone.PurchasePrice = new(big.Int).Set(r.PurchasePrice)
	}
	return &clone
}

// IsLease reports whether the record expires.
func (r *Record) IsLease() bool {
	return r != nil && r.Type == RecordTypeLease
}

// Expired reports whether a lease has passed its end timestamp. Expired leases
// remain renewable until the grace period elapses.
func (r *Record) Expired(now uint64) bool {
	return r.IsLease() && r.EndTimestamp <= now
}

// Released reports whether a lease has passed its end timestamp plus the grace
// period, making the name available to anyone again.
func (r *Record) Released(now, gracePeriod uint64) bool {
	return r.IsLease() && r.EndTimestamp+gracePeriod <= now
}

// ReservedName holds a name back from open registration. An empty Target means
// nobody may claim it; a zero EndTimestamp means the reservation never lapses.
type ReservedName struct {
	Target       string `json:"target,omitempty"`
	EndTimestamp uint64 `json:"endTimestamp,omitempty"`
}

// Clone returns a copy of the reservation.
func (r *ReservedName) Clone() *ReservedName {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// Lapsed reports whether a timed reservation has ended.
func (r *ReservedName) Lapsed(now uint64) bool {
	return r != nil && r.EndTimestamp != 0 && r.EndTimestamp <= now
}
