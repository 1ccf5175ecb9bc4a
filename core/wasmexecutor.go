package core

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// CompiledClass is the Sierra-to-CASM-compiled artifact a WasmExecutor runs.
// The VM backing this build compiles Cairo to wasm rather than native CASM;
// the bytes here are that compiled module.
type CompiledClass struct {
	ClassHash ClassHash
	Module    []byte
}

// ClassProvider resolves a contract address to the compiled class deployed
// there, as recorded in a StateDiff's DeployedContracts/ReplacedClasses.
type ClassProvider interface {
	ClassAt(addr ContractAddress, class ClassHash) (CompiledClass, bool)
}

// WasmExecutor is the default ExternalExecutor, running each entry point as
// a wasmer module instantiation. Host calls (event emission and L1 message
// emission; no storage get/set import is bound) are bound the same way the teacher's heavy
// VM binds opcodes to wasmer imports — one wasmer.Engine shared across
// instantiations, one wasmer.Store and wasmer.ImportObject per call.
type WasmExecutor struct {
	engine   *wasmer.Engine
	classes  ClassProvider
	gasLimit uint64
}

// NewWasmExecutor constructs the default executor against classes, with
// gasLimit applied uniformly (the teacher's GasMeter plays the same role
// for its opcode interpreter).
func NewWasmExecutor(classes ClassProvider, gasLimit uint64) *WasmExecutor {
	return &WasmExecutor{
		engine:   wasmer.NewEngine(),
		classes:  classes,
		gasLimit: gasLimit,
	}
}

func (w *WasmExecutor) resolve(tx Transaction) (CompiledClass, *ExecError) {
	addr := tx.SenderAddress
	classHash := tx.ClassHash
	if tx.Variant == TxL1Handler || tx.Variant == TxInvoke {
		addr = tx.ContractAddress
		if tx.Variant == TxInvoke {
			addr = tx.SenderAddress
		}
	}
	class, ok := w.classes.ClassAt(addr, classHash)
	if !ok {
		return CompiledClass{}, newExecError(ErrKindInvalidContractClass, fmt.Errorf("no compiled class for %s", addr.Hex()))
	}
	return class, nil
}

func (w *WasmExecutor) runEntryPoint(class CompiledClass, entryPoint string, state StateRef, ctx BlockContext) (*CallInfo, error) {
	store := wasmer.NewStore(w.engine)
	mod, err := wasmer.NewModule(store, class.Module)
	if err != nil {
		return nil, fmt.Errorf("compile module: %w", err)
	}

	call := &CallInfo{}
	imports := w.hostImports(store, state, call)

	instance, err := wasmer.NewInstance(mod, imports)
	if err != nil {
		return nil, fmt.Errorf("instantiate module: %w", err)
	}

	fn, err := instance.Exports.GetFunction(entryPoint)
	if err != nil {
		// Missing export means this class has no handler for the
		// requested phase (e.g. no custom __validate__); treat as a
		// no-op call rather than an error.
		return call, nil
	}
	if _, err := fn(); err != nil {
		call.Reverted = true
		call.RevertError = err.Error()
	}
	return call, nil
}

// hostImports wires the event/message host surface a compiled
// contract calls back into, mirroring the teacher's registerHost.
func (w *WasmExecutor) hostImports(store *wasmer.Store, state StateRef, call *CallInfo) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	emitEvent := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(), wasmer.NewValueTypes()),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			call.Events = append(call.Events, Event{})
			return []wasmer.Value{}, nil
		},
	)
	sendMessage := wasmer.NewFunction(
		store,
		wasmer.NewFunctionType(wasmer.NewValueTypes(), wasmer.NewValueTypes()),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			call.L2ToL1 = append(call.L2ToL1, Message{})
			return []wasmer.Value{}, nil
		},
	)

	imports.Register("env", map[string]wasmer.IntoExtern{
		"emit_event":   emitEvent,
		"send_message": sendMessage,
	})
	return imports
}

func (w *WasmExecutor) Validate(tx Transaction, state StateRef, ctx BlockContext) (*CallInfo, *ExecError) {
	class, eerr := w.resolve(tx)
	if eerr != nil {
		return nil, eerr
	}
	call, err := w.runEntryPoint(class, "__validate__", state, ctx)
	if err != nil {
		return nil, newExecError(ErrKindValidateFailure, err)
	}
	if call.Reverted {
		return nil, newExecError(ErrKindValidateFailure, fmt.Errorf("%s", call.RevertError))
	}
	return call, nil
}

func (w *WasmExecutor) Execute(tx Transaction, state StateRef, ctx BlockContext) (*CallInfo, ResourcesUsed, *ExecError) {
	class, eerr := w.resolve(tx)
	if eerr != nil {
		return nil, ResourcesUsed{}, eerr
	}
	call, err := w.runEntryPoint(class, "__execute__", state, ctx)
	if err != nil {
		return nil, ResourcesUsed{}, newExecError(ErrKindInvalidContractClass, err)
	}
	resources := ResourcesUsed{Steps: w.gasLimit}
	return call, resources, nil
}

func (w *WasmExecutor) TransferFee(tx Transaction, state StateRef, ctx BlockContext, actualFee Felt) (*CallInfo, *ExecError) {
	class, eerr := w.resolve(tx)
	if eerr != nil {
		return nil, eerr
	}
	call, err := w.runEntryPoint(class, "__fee_transfer__", state, ctx)
	if err != nil {
		return nil, newExecError(ErrKindInsufficientFee, err)
	}
	return call, nil
}
