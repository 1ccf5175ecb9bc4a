package core

import "fmt"

// CallInfo is one node of the call tree an ExternalExecutor produces for a
// single transaction: validate, execute, and fee_transfer each root their
// own tree, and inner contract calls nest under whichever of the three they
// were made from.
type CallInfo struct {
	Events      []Event
	L2ToL1      []Message
	InnerCalls  []CallInfo
	Reverted    bool
	RevertError string
}

// TransactionExecutionInfo is what the external executor returns for one
// transaction: the three top-level call trees plus resource accounting.
type TransactionExecutionInfo struct {
	ValidateCallInfo     *CallInfo
	ExecuteCallInfo      *CallInfo
	FeeTransferCallInfo  *CallInfo
	ActualFee            Felt
	Resources            ResourcesUsed
	RevertError          string
}

// Reverted reports whether the execute phase reverted. Validation failures
// never reach this type — they surface as an ExecError instead.
func (i TransactionExecutionInfo) Reverted() bool {
	return i.ExecuteCallInfo != nil && i.ExecuteCallInfo.Reverted
}

// ExecError classifies a failure that happened before or during execution,
// closed over the kinds spec.md §4C lists.
type ExecError struct {
	Kind  ErrorKind
	Cause error
}

func (e *ExecError) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *ExecError) Unwrap() error { return e.Cause }

func newExecError(kind ErrorKind, cause error) *ExecError {
	return &ExecError{Kind: kind, Cause: cause}
}

// BlockContext carries the chain-wide parameters execution needs but that
// are not part of any single transaction.
type BlockContext struct {
	Number           BlockNumber
	Timestamp        int64
	GasPrice         uint64
	SequencerAddress ContractAddress
	ChainID          Felt
}

// ExternalExecutor is the VM boundary: the core never interprets Cairo or
// Sierra bytecode itself, it dispatches to this collaborator and folds the
// result into a Receipt and StateDiff. WasmExecutor (wasmexecutor.go) is the
// default adapter; tests use a scripted fake.
type ExternalExecutor interface {
	Validate(tx Transaction, state StateRef, ctx BlockContext) (*CallInfo, *ExecError)
	Execute(tx Transaction, state StateRef, ctx BlockContext) (*CallInfo, ResourcesUsed, *ExecError)
	TransferFee(tx Transaction, state StateRef, ctx BlockContext, actualFee Felt) (*CallInfo, *ExecError)
}

// execute runs one transaction end to end: validate, execute, fee transfer,
// in that order, against the cached state. A validation failure returns
// immediately without touching outputs. A revert during execution still
// runs the fee transfer and still produces a Receipt; only validation
// failures are rejections.
func execute(executor ExternalExecutor, tx Transaction, state StateRef, ctx BlockContext) (TransactionExecutionInfo, *ExecError) {
	if executor == nil {
		return TransactionExecutionInfo{}, newExecError(ErrKindInvalidContractClass, fmt.Errorf("no executor configured"))
	}

	validateInfo, verr := executor.Validate(tx, state, ctx)
	if verr != nil {
		return TransactionExecutionInfo{}, verr
	}

	executeInfo, resources, eerr := executor.Execute(tx, state, ctx)
	if eerr != nil {
		return TransactionExecutionInfo{}, eerr
	}

	actualFee := estimateFee(resources, ctx.GasPrice)
	feeInfo, ferr := executor.TransferFee(tx, state, ctx, actualFee)
	if ferr != nil {
		return TransactionExecutionInfo{}, ferr
	}

	info := TransactionExecutionInfo{
		ValidateCallInfo:    validateInfo,
		ExecuteCallInfo:     executeInfo,
		FeeTransferCallInfo: feeInfo,
		ActualFee:           actualFee,
		Resources:           resources,
	}
	if executeInfo != nil && executeInfo.Reverted {
		info.RevertError = executeInfo.RevertError
	}
	return info, nil
}

func estimateFee(r ResourcesUsed, gasPrice uint64) Felt {
	return FeltFromUint64(r.Steps * gasPrice)
}

// flattenEvents walks validate, execute, fee_transfer call infos in that
// order and flattens inner calls depth-first, preserving order — the
// ordering guarantee spec.md §5 requires for a single transaction's events.
func flattenEvents(info TransactionExecutionInfo) []Event {
	var out []Event
	for _, ci := range []*CallInfo{info.ValidateCallInfo, info.ExecuteCallInfo, info.FeeTransferCallInfo} {
		if ci == nil {
			continue
		}
		collectEvents(ci, &out)
	}
	return out
}

func collectEvents(ci *CallInfo, out *[]Event) {
	*out = append(*out, ci.Events...)
	for i := range ci.InnerCalls {
		collectEvents(&ci.InnerCalls[i], out)
	}
}

// flattenMessages mirrors flattenEvents for L2->L1 messages.
func flattenMessages(info TransactionExecutionInfo) []Message {
	var out []Message
	for _, ci := range []*CallInfo{info.ValidateCallInfo, info.ExecuteCallInfo, info.FeeTransferCallInfo} {
		if ci == nil {
			continue
		}
		collectMessages(ci, &out)
	}
	return out
}

func collectMessages(ci *CallInfo, out *[]Message) {
	*out = append(*out, ci.L2ToL1...)
	for i := range ci.InnerCalls {
		collectMessages(&ci.InnerCalls[i], out)
	}
}

// BuildReceipt assembles the Receipt spec.md §3 describes from a completed
// TransactionExecutionInfo. Call only after execute returns without error;
// a validation failure never reaches this path.
func BuildReceipt(txHash TxHash, info TransactionExecutionInfo, gasPrice uint64) Receipt {
	var revertReason *string
	if info.Reverted() {
		r := info.RevertError
		revertReason = &r
	}
	return Receipt{
		TxHash: txHash,
		FeeInfo: FeeInfo{
			ActualFee: info.ActualFee,
			GasPrice:  gasPrice,
			GasUsed:   info.Resources.Steps,
		},
		Events:        flattenEvents(info),
		MessagesToL1:  flattenMessages(info),
		RevertReason:  revertReason,
		ResourcesUsed: info.Resources,
	}
}
