package core

// ChainSpec is the single read-only root constructed once at process
// startup and shared across every component that needs chain-wide
// parameters. Nothing in the core mutates it after construction — the only
// mutable roots are the chain storage (internally locked) and per-task
// checkpoints (atomic), per the system's "no global mutable state" design
// note.
type ChainSpec struct {
	ChainID          string
	GasPrice         uint64
	Timestamp        int64
	SequencerAddress ContractAddress
}

// ChainIDFelt encodes the chain-id short string as a Felt, the form used in
// transaction hashing.
func (c ChainSpec) ChainIDFelt() (Felt, error) {
	return EncodeShortString(c.ChainID)
}
