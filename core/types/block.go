package types

// BlockContext carries the height and timestamp of the block whose
// interaction is being processed. Engines never read a local clock; both
// values come from the sequencing layer.
type BlockContext struct {
	Height    uint64 `json:"height" yaml:"height"`
	Timestamp uint64 `json:"timestamp" yaml:"timestamp"`
}
