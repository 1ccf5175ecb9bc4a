package core

import "testing"

type scriptedExecutor struct {
	validateErr *ExecError
	executeInfo *CallInfo
	resources   ResourcesUsed
	executeErr  *ExecError
}

func (s *scriptedExecutor) Validate(tx Transaction, state StateRef, ctx BlockContext) (*CallInfo, *ExecError) {
	if s.validateErr != nil {
		return nil, s.validateErr
	}
	return &CallInfo{}, nil
}

func (s *scriptedExecutor) Execute(tx Transaction, state StateRef, ctx BlockContext) (*CallInfo, ResourcesUsed, *ExecError) {
	if s.executeErr != nil {
		return nil, ResourcesUsed{}, s.executeErr
	}
	return s.executeInfo, s.resources, nil
}

func (s *scriptedExecutor) TransferFee(tx Transaction, state StateRef, ctx BlockContext, actualFee Felt) (*CallInfo, *ExecError) {
	return &CallInfo{}, nil
}

func TestExecuteSuccessFlattensEventsDepthFirst(t *testing.T) {
	inner := CallInfo{Events: []Event{{Keys: []Felt{FeltFromUint64(2)}}}}
	outer := &CallInfo{
		Events:     []Event{{Keys: []Felt{FeltFromUint64(1)}}},
		InnerCalls: []CallInfo{inner},
	}
	exec := &scriptedExecutor{executeInfo: outer, resources: ResourcesUsed{Steps: 10}}

	info, eerr := execute(exec, Transaction{Variant: TxInvoke}, "state", BlockContext{GasPrice: 2})
	if eerr != nil {
		t.Fatalf("execute: %v", eerr)
	}
	events := flattenEvents(info)
	if len(events) != 2 {
		t.Fatalf("expected 2 flattened events, got %d", len(events))
	}
	if !events[0].Keys[0].Equal(FeltFromUint64(1)) || !events[1].Keys[0].Equal(FeltFromUint64(2)) {
		t.Fatalf("expected outer-before-inner order, got %v", events)
	}
	if !info.ActualFee.Equal(FeltFromUint64(20)) {
		t.Fatalf("expected actual_fee=steps*gas_price=20, got %v", info.ActualFee)
	}
}

func TestExecuteValidationFailureStopsBeforeExecute(t *testing.T) {
	exec := &scriptedExecutor{validateErr: newExecError(ErrKindNonceMismatch, nil)}
	_, eerr := execute(exec, Transaction{Variant: TxInvoke}, "state", BlockContext{})
	if eerr == nil || eerr.Kind != ErrKindNonceMismatch {
		t.Fatalf("expected NonceMismatch, got %v", eerr)
	}
}

func TestExecuteRevertProducesReceiptNotRejection(t *testing.T) {
	reverted := &CallInfo{Reverted: true, RevertError: "insufficient balance"}
	exec := &scriptedExecutor{executeInfo: reverted, resources: ResourcesUsed{Steps: 3}}
	info, eerr := execute(exec, Transaction{Variant: TxInvoke}, "state", BlockContext{GasPrice: 1})
	if eerr != nil {
		t.Fatalf("execute: %v", eerr)
	}
	if !info.Reverted() {
		t.Fatal("expected reverted info")
	}
	receipt := BuildReceipt(TxHashFromFelt(FeltFromUint64(1)), info, 1)
	if !receipt.Reverted() || receipt.RevertReason == nil || *receipt.RevertReason != "insufficient balance" {
		t.Fatalf("expected receipt to carry revert reason, got %+v", receipt)
	}
}
