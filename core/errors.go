package core

import "fmt"

// ErrorKind tags the error taxonomy from the system's error handling design:
// a small, closed set of recovery-relevant categories rather than a type per
// failure site.
type ErrorKind uint8

const (
	ErrKindRpcTransient ErrorKind = iota
	ErrKindRpcPermanent
	ErrKindValidateFailure
	ErrKindNonceMismatch
	ErrKindClassAlreadyDeclared
	ErrKindInvalidCompiledClassHash
	ErrKindBlockNotFound
	ErrKindUnknownStage
	ErrKindStageExecution
	ErrKindManifestMissing
	ErrKindReorg
	ErrKindStoreIO
	ErrKindInsufficientFee
	ErrKindDuplicatedTx
	ErrKindInvalidContractClass
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindRpcTransient:
		return "RpcTransient"
	case ErrKindRpcPermanent:
		return "RpcPermanent"
	case ErrKindValidateFailure:
		return "ValidateFailure"
	case ErrKindNonceMismatch:
		return "NonceMismatch"
	case ErrKindClassAlreadyDeclared:
		return "ClassAlreadyDeclared"
	case ErrKindInvalidCompiledClassHash:
		return "InvalidCompiledClassHash"
	case ErrKindBlockNotFound:
		return "BlockNotFound"
	case ErrKindUnknownStage:
		return "UnknownStage"
	case ErrKindStageExecution:
		return "StageExecution"
	case ErrKindManifestMissing:
		return "ManifestMissing"
	case ErrKindReorg:
		return "Reorg"
	case ErrKindStoreIO:
		return "StoreIO"
	case ErrKindInsufficientFee:
		return "InsufficientFee"
	case ErrKindDuplicatedTx:
		return "DuplicatedTx"
	case ErrKindInvalidContractClass:
		return "InvalidContractClass"
	default:
		return "Unknown"
	}
}

// KindedError pairs a taxonomy kind with an underlying cause, letting
// callers classify failures with errors.As/a type switch while still
// carrying a human-readable cause via Unwrap.
type KindedError struct {
	Kind  ErrorKind
	Cause error
}

func (e *KindedError) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *KindedError) Unwrap() error { return e.Cause }

// NewKindedError wraps cause under kind, mirroring pkg/utils.Wrap's
// "cause: context" convention but attaching a taxonomy kind instead of a
// free-form string.
func NewKindedError(kind ErrorKind, cause error) *KindedError {
	return &KindedError{Kind: kind, Cause: cause}
}

// ErrNotFound is returned by store/query paths whose contract is "not found
// is not an error, it is None" — kept as a sentinel so callers can compare
// directly rather than unwrap a KindedError.
var ErrNotFound = fmt.Errorf("not found")

// ErrNonContiguousBlock signals an attempt to append a block whose number is
// not exactly one greater than the current tip.
var ErrNonContiguousBlock = fmt.Errorf("non-contiguous block number")

// ErrInvalidProof is returned when an L1 log does not carry the four topics
// of a LogMessageToL2 event.
var ErrInvalidProof = fmt.Errorf("invalid proof")
