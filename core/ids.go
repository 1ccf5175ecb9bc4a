package core

// ContractAddress identifies an account or contract on L2. It is an opaque
// 252-bit field element; only equality and hashing are meaningful.
type ContractAddress struct{ f Felt }

// ClassHash identifies declared Cairo bytecode.
type ClassHash struct{ f Felt }

// CompiledClassHash identifies the CASM produced by compiling a Sierra
// class. It is invariantly derivable from the class but stored alongside it
// to amortize recompilation.
type CompiledClassHash struct{ f Felt }

// TxHash content-addresses a transaction.
type TxHash struct{ f Felt }

// BlockHash content-addresses a sealed block.
type BlockHash struct{ f Felt }

func AddressFromFelt(f Felt) ContractAddress         { return ContractAddress{f} }
func ClassHashFromFelt(f Felt) ClassHash             { return ClassHash{f} }
func CompiledClassHashFromFelt(f Felt) CompiledClassHash { return CompiledClassHash{f} }
func TxHashFromFelt(f Felt) TxHash                   { return TxHash{f} }
func BlockHashFromFelt(f Felt) BlockHash             { return BlockHash{f} }

func (a ContractAddress) Felt() Felt         { return a.f }
func (c ClassHash) Felt() Felt               { return c.f }
func (c CompiledClassHash) Felt() Felt       { return c.f }
func (h TxHash) Felt() Felt                  { return h.f }
func (h BlockHash) Felt() Felt               { return h.f }

func (a ContractAddress) Hex() string { return a.f.Hex() }
func (c ClassHash) Hex() string       { return c.f.Hex() }
func (h TxHash) Hex() string          { return h.f.Hex() }
func (h BlockHash) Hex() string       { return h.f.Hex() }

func (a ContractAddress) Equal(o ContractAddress) bool { return a.f.Equal(o.f) }
func (c ClassHash) Equal(o ClassHash) bool             { return c.f.Equal(o.f) }
func (h TxHash) Equal(o TxHash) bool                   { return h.f.Equal(o.f) }
func (h BlockHash) Equal(o BlockHash) bool             { return h.f.Equal(o.f) }

// BlockNumber is a monotonically increasing, zero-based height.
type BlockNumber uint64

// BlockIDKind tags which form of block identifier a BlockID carries.
type BlockIDKind uint8

const (
	BlockIDLatest BlockIDKind = iota
	BlockIDHash
	BlockIDNumber
	BlockIDPending
)

// BlockID resolves to a concrete block in one of the ways RPC callers and
// internal components address blocks. Pending is only meaningful to the
// pending-block state machine; chain storage never resolves it.
type BlockID struct {
	Kind   BlockIDKind
	Hash   BlockHash
	Number BlockNumber
}

func LatestBlockID() BlockID              { return BlockID{Kind: BlockIDLatest} }
func PendingBlockID() BlockID             { return BlockID{Kind: BlockIDPending} }
func HashBlockID(h BlockHash) BlockID     { return BlockID{Kind: BlockIDHash, Hash: h} }
func NumberBlockID(n BlockNumber) BlockID { return BlockID{Kind: BlockIDNumber, Number: n} }
