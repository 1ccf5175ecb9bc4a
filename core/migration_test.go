package core

import "testing"

func TestBuildPlanWorldUnchangedOnlyIncludesChanged(t *testing.T) {
	syncedKey := ResourceKey{Name: "Synced"}
	updatedKey := ResourceKey{Name: "Updated"}
	diff := WorldDiff{
		World: &ResourceDiff{Kind: DiffSynced},
		Contracts: []ResourceDiff{
			{Kind: DiffSynced, Local: ResourceLocal{Key: syncedKey}},
			{Kind: DiffUpdated, Local: ResourceLocal{Key: updatedKey}},
		},
	}
	plan := BuildPlan(diff, ClassHashFromFelt(FeltFromUint64(1)), ClassHashFromFelt(FeltFromUint64(2)), FeltFromUint64(7), nil)

	if plan.World != nil {
		t.Fatal("expected no world migration when world is Synced")
	}
	if len(plan.Contracts) != 1 || plan.Contracts[0].Key != updatedKey {
		t.Fatalf("expected only the Updated contract, got %+v", plan.Contracts)
	}
}

func TestBuildPlanWorldChangedIncludesEverything(t *testing.T) {
	syncedKey := ResourceKey{Name: "Synced"}
	diff := WorldDiff{
		World: &ResourceDiff{Kind: DiffUpdated},
		Contracts: []ResourceDiff{
			{Kind: DiffSynced, Local: ResourceLocal{Key: syncedKey}},
		},
	}
	plan := BuildPlan(diff, ClassHashFromFelt(FeltFromUint64(1)), ClassHashFromFelt(FeltFromUint64(2)), FeltFromUint64(7), nil)

	if plan.World == nil || plan.Base == nil {
		t.Fatal("expected world and base migrations when world changed")
	}
	if len(plan.Contracts) != 1 {
		t.Fatalf("expected the Synced contract to still be included, got %+v", plan.Contracts)
	}
	if plan.WorldAddress == nil {
		t.Fatal("expected a predicted world address")
	}
}

func TestDeclareClassTreatsAlreadyDeclaredAsSuccess(t *testing.T) {
	cm := &ClassMigration{Name: "Position"}
	DeclareClass(cm, func(ClassMigration) (*TxHash, *ExecError) {
		return nil, newExecError(ErrKindClassAlreadyDeclared, nil)
	})
	if cm.State != ItemDeclared {
		t.Fatalf("expected Declared state, got %v", cm.State)
	}
	if cm.Result.Outcome != StepSkipped {
		t.Fatalf("expected Skipped outcome, got %v", cm.Result.Outcome)
	}
}

func TestDeployContractSkipsWhenAlreadyAtExpectedClass(t *testing.T) {
	expected := ClassHashFromFelt(FeltFromUint64(5))
	addr := AddressFromFelt(FeltFromUint64(1))
	cm := &ContractMigration{Address: addr, ClassHash: expected, State: ItemDeclared}

	deployCalled := false
	DeployContract(cm,
		func(ContractAddress) (ClassHash, bool) { return expected, true },
		func(ContractMigration) (*TxHash, *ExecError) { deployCalled = true; return nil, nil },
	)
	if deployCalled {
		t.Fatal("expected deploy to be skipped")
	}
	if cm.State != ItemDeployed {
		t.Fatalf("expected Deployed state, got %v", cm.State)
	}
}

func TestResumeFindsFirstNonSucceededStep(t *testing.T) {
	plan := &MigrationPlan{
		Base: &ClassMigration{Result: StepResult{Outcome: StepSucceeded}},
		Models: []ClassMigration{
			{Name: "A", Result: StepResult{Outcome: StepSucceeded}},
			{Name: "B", Result: StepResult{Outcome: StepFailed}},
		},
	}
	step, pending := Resume(plan)
	if !pending || step != "declare_model:B" {
		t.Fatalf("expected to resume at declare_model:B, got %q pending=%v", step, pending)
	}
}

func TestExecuteRunsFivePhasesInOrder(t *testing.T) {
	var calls []string
	plan := &MigrationPlan{
		Base: &ClassMigration{Name: "base", ClassHash: ClassHashFromFelt(FeltFromUint64(1))},
		World: &ContractMigration{ClassHash: ClassHashFromFelt(FeltFromUint64(2))},
		Models: []ClassMigration{
			{Name: "Position", ClassHash: ClassHashFromFelt(FeltFromUint64(3))},
		},
		Contracts: []ContractMigration{
			{Key: ResourceKey{Name: "actions"}, ClassHash: ClassHashFromFelt(FeltFromUint64(4)),
				AuthPolicy: AuthPolicy{Writers: []ContractAddress{AddressFromFelt(FeltFromUint64(99))}}},
		},
		WorldAddress: func() *ContractAddress { a := AddressFromFelt(FeltFromUint64(7)); return &a }(),
	}

	hooks := MigrationHooks{
		Declare: func(cm ClassMigration) (*TxHash, *ExecError) {
			calls = append(calls, "declare:"+cm.Name)
			h := TxHashFromFelt(FeltFromUint64(1))
			return &h, nil
		},
		ClassHashAt: func(ContractAddress) (ClassHash, bool) { return ClassHash{}, false },
		DeployWorld: func(cm ContractMigration) (*TxHash, *ExecError) {
			calls = append(calls, "deploy_world")
			h := TxHashFromFelt(FeltFromUint64(2))
			return &h, nil
		},
		RegisterModel: func(world ContractAddress, classHash ClassHash) (*TxHash, *ExecError) {
			calls = append(calls, "register_model")
			h := TxHashFromFelt(FeltFromUint64(3))
			return &h, nil
		},
		DeployContract: func(cm ContractMigration) (*TxHash, *ExecError) {
			calls = append(calls, "deploy_contract:"+cm.Key.Name)
			h := TxHashFromFelt(FeltFromUint64(4))
			return &h, nil
		},
		GrantWriter: func(world ContractAddress, resource ResourceKey, writer ContractAddress) (*TxHash, *ExecError) {
			calls = append(calls, "grant_writer:"+resource.Name)
			h := TxHashFromFelt(FeltFromUint64(5))
			return &h, nil
		},
	}

	out := Execute(plan, hooks)
	if !out.Full {
		t.Fatalf("expected a full run, got %+v", out)
	}
	want := []string{"declare:base", "declare:Position", "deploy_world", "register_model", "deploy_contract:actions", "grant_writer:actions"}
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("step %d: expected %q, got %q (full: %v)", i, want[i], calls[i], calls)
		}
	}
	if plan.Contracts[0].State != ItemAuthorized {
		t.Fatalf("expected contract to reach Authorized, got %v", plan.Contracts[0].State)
	}
}

func TestExecuteStopsAtFirstFailure(t *testing.T) {
	plan := &MigrationPlan{
		Base: &ClassMigration{Name: "base"},
		Models: []ClassMigration{
			{Name: "Position"},
		},
	}
	hooks := MigrationHooks{
		Declare: func(cm ClassMigration) (*TxHash, *ExecError) {
			if cm.Name == "Position" {
				return nil, newExecError(ErrKindRpcPermanent, nil)
			}
			h := TxHashFromFelt(FeltFromUint64(1))
			return &h, nil
		},
	}

	out := Execute(plan, hooks)
	if out.Full {
		t.Fatal("expected a partial run")
	}
	step, pending := Resume(plan)
	if !pending || step != "declare_model:Position" {
		t.Fatalf("expected resume at declare_model:Position, got %q", step)
	}
}

func TestUDCAddressIsDeterministic(t *testing.T) {
	salt := FeltFromUint64(1)
	class := ClassHashFromFelt(FeltFromUint64(2))
	args := []Felt{FeltFromUint64(3)}
	a := UDCAddress(salt, class, args)
	b := UDCAddress(salt, class, args)
	if !a.Equal(b) {
		t.Fatal("expected UDCAddress to be deterministic")
	}
}
