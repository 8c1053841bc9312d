package names

import (
	"math/big"
	"strings"

	"arns/core/types"
)

// Kind identifies a registry command.
type Kind string

const (
	KindBuyRecord              Kind = "buyRecord"
	KindExtendRecord           Kind = "extendRecord"
	KindIncreaseUndernameCount Kind = "increaseUndernameCount"
	KindSubmitAuctionBid       Kind = "submitAuctionBid"
)

// Command is the closed set of registry interactions. Commands arrive already
// shape-validated; the engine performs domain checks only.
type Command interface {
	Kind() Kind
	isCommand()
}

// BuyRecord registers an available name outright.
type BuyRecord struct {
	Name         string
	Type         types.RecordType
	Years        uint64
	ContractTxID string
}

// ExtendRecord adds whole years to an existing lease.
type ExtendRecord struct {
	Name  string
	Years uint64
}

// IncreaseUndernameCount raises the undername allowance of a record.
type IncreaseUndernameCount struct {
	Name string
	Qty  uint64
}

// SubmitAuctionBid opens or bids on the auction for Name. A nil Bid pays the
// current required minimum.
type SubmitAuctionBid struct {
	Name         string
	Type         types.RecordType
	ContractTxID string
	Years        uint64
	Bid          *big.Int
}

func (BuyRecord) Kind() Kind              { return KindBuyRecord }
func (ExtendRecord) Kind() Kind           { return KindExtendRecord }
func (IncreaseUndernameCount) Kind() Kind { return KindIncreaseUndernameCount }
func (SubmitAuctionBid) Kind() Kind       { return KindSubmitAuctionBid }

func (BuyRecord) isCommand()              {}
func (ExtendRecord) isCommand()           {}
func (IncreaseUndernameCount) isCommand() {}
func (SubmitAuctionBid) isCommand()       {}

// NormalizeName lower-cases and trims a name the way it is stored.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
