package main

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"arns/core/types"
	"arns/crypto"
	"arns/native/names"

	"gopkg.in/yaml.v3"
)

const (
	commandTick               = "tick"
	commandCreateReservedName = "createReservedName"
	// treasuryAlias lets scripts act as the registry owner without spelling
	// out its address.
	treasuryAlias = "treasury"
)

// Script is a replayable sequence of registry interactions.
type Script struct {
	// Balances seed accounts when the replay starts from genesis. Keys are
	// bech32 addresses or labels.
	Balances map[string]string `yaml:"balances"`
	Steps    []Step            `yaml:"steps"`
}

// Step is one command executed at a block.
type Step struct {
	Height       uint64 `yaml:"height"`
	Timestamp    uint64 `yaml:"timestamp"`
	Caller       string `yaml:"caller"`
	Command      string `yaml:"command"`
	Name         string `yaml:"name"`
	Type         string `yaml:"type"`
	Years        uint64 `yaml:"years"`
	Qty          uint64 `yaml:"qty"`
	ContractTxID string `yaml:"contractTxId"`
	Bid          string `yaml:"bid"`
	Target       string `yaml:"target"`
	EndTimestamp uint64 `yaml:"endTimestamp"`
}

// LoadScript decodes a YAML replay script.
func LoadScript(path string) (*Script, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	defer file.Close()

	var script Script
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&script); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	if err := script.Validate(); err != nil {
		return nil, fmt.Errorf("validate script: %w", err)
	}
	return &script, nil
}

// Validate checks block ordering and that every command is known.
func (s *Script) Validate() error {
	var previous uint64
	for i, step := range s.Steps {
		if step.Height < previous {
			return fmt.Errorf("step %d: height %d precedes %d", i, step.Height, previous)
		}
		previous = step.Height
		if step.Command == commandTick || step.Command == commandCreateReservedName {
			continue
		}
		if _, err := step.command(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func (s Step) block() types.BlockContext {
	return types.BlockContext{Height: s.Height, Timestamp: s.Timestamp}
}

func (s Step) command() (names.Command, error) {
	switch names.Kind(strings.TrimSpace(s.Command)) {
	case names.KindBuyRecord:
		return names.BuyRecord{
			Name:         s.Name,
			Type:         types.RecordType(s.Type),
			Years:        s.Years,
			ContractTxID: s.ContractTxID,
		}, nil
	case names.KindExtendRecord:
		return names.ExtendRecord{Name: s.Name, Years: s.Years}, nil
	case names.KindIncreaseUndernameCount:
		return names.IncreaseUndernameCount{Name: s.Name, Qty: s.Qty}, nil
	case names.KindSubmitAuctionBid:
		var bid *big.Int
		if raw := strings.TrimSpace(s.Bid); raw != "" {
			parsed, ok := new(big.Int).SetString(strings.ReplaceAll(raw, "_", ""), 10)
			if !ok {
				return nil, fmt.Errorf("invalid bid %q", s.Bid)
			}
			bid = parsed
		}
		return names.SubmitAuctionBid{
			Name:         s.Name,
			Type:         types.RecordType(s.Type),
			Years:        s.Years,
			ContractTxID: s.ContractTxID,
			Bid:          bid,
		}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", s.Command)
	}
}

// resolveAddress accepts a bech32 address, the treasury alias or a label
// from which a deterministic address is derived.
func resolveAddress(value string, treasury crypto.Address) (crypto.Address, error) {
	trimmed := strings.TrimSpace(value)
	switch trimmed {
	case "":
		return crypto.Address{}, fmt.Errorf("address required")
	case treasuryAlias:
		return treasury, nil
	}
	if addr, err := crypto.DecodeAddress(trimmed); err == nil {
		return addr, nil
	}
	return crypto.DeriveAddress(trimmed), nil
}
