package common

import (
	"errors"
	"strings"
)

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether governance has halted a module.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects interactions with a paused module. A nil view never pauses.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// StaticPauses is a fixed pause list, typically loaded from configuration.
type StaticPauses map[string]bool

// IsPaused implements PauseView.
func (s StaticPauses) IsPaused(module string) bool {
	if len(s) == 0 {
		return false
	}
	return s[strings.ToLower(strings.TrimSpace(module))]
}
