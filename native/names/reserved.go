package names

import (
	coreerrors "arns/core/errors"
	"arns/core/state"
	"arns/core/types"
	"arns/crypto"
)

const opCreateReservedName = "names.createReservedName"

// CreateReservedName holds name back for target until endTimestamp. Only the
// registry owner (the treasury) may reserve names. A zero endTimestamp keeps
// the reservation until it is claimed.
func (e *Engine) CreateReservedName(reg *state.Registry, caller crypto.Address, block types.BlockContext, name string, reservation types.ReservedName) (*state.Registry, error) {
	x, err := e.begin(reg, caller, block)
	if err != nil {
		return nil, err
	}
	if !caller.Equal(e.cfg.Treasury) {
		return reg, coreerrors.New(coreerrors.KindConflict, opCreateReservedName, "caller is not the registry owner")
	}
	normalized, err := requireName(opCreateReservedName, name)
	if err != nil {
		return reg, err
	}
	if reservation.EndTimestamp != 0 && reservation.EndTimestamp < block.Timestamp {
		return reg, coreerrors.New(coreerrors.KindInvalidInput, opCreateReservedName, "end timestamp is in the past")
	}
	if _, ok := x.reg.GetRecord(normalized); ok {
		return reg, coreerrors.Newf(coreerrors.KindConflict, opCreateReservedName, "name %q is already registered", normalized)
	}
	if _, ok := x.reg.GetAuction(normalized); ok {
		return reg, coreerrors.Newf(coreerrors.KindConflict, opCreateReservedName, "name %q is currently in auction", normalized)
	}
	x.reg.PutReserved(normalized, reservation.Clone())
	e.commit(x)
	return x.reg, nil
}
