package core

import "fmt"

// ItemState is the per-migration-item state machine spec.md §4I describes.
type ItemState uint8

const (
	ItemNotDeclared ItemState = iota
	ItemDeclared
	ItemDeployed
	ItemRegistered
	ItemAuthorized
)

// StepOutcome is how one migration step surfaces its result.
type StepOutcome uint8

const (
	StepSkipped StepOutcome = iota
	StepSucceeded
	StepFailed
)

// StepResult records one step's outcome, used both live and when resuming.
type StepResult struct {
	Outcome StepOutcome
	TxHash  *TxHash
	Kind    ErrorKind
	Reason  string
}

// ClassMigration declares a class to be made known on-chain.
type ClassMigration struct {
	Name      string
	ClassHash ClassHash
	Casm      []byte
	State     ItemState
	Result    StepResult
}

// ContractMigration declares a contract to be deployed through the UDC.
type ContractMigration struct {
	Key          ResourceKey
	ClassHash    ClassHash
	Salt         Felt
	CtorArgs     []Felt
	Address      ContractAddress
	AuthPolicy   AuthPolicy
	State        ItemState
	Result       StepResult
}

// AuthPolicy is the per-contract ACL grant set applied after deployment,
// grounded on compare.rs's owners/writers sets.
type AuthPolicy struct {
	Owners  []ContractAddress
	Writers []ContractAddress
}

// MigrationPlan is the ordered, minimal deployment plan §4I produces.
type MigrationPlan struct {
	World        *ContractMigration
	Base         *ClassMigration
	Contracts    []ContractMigration
	Models       []ClassMigration
	WorldAddress *ContractAddress
}

// ArtifactLookup is the flat name->path map §4I's artifact lookup builds by
// scanning the target directory; it is an external collaborator here, the
// core only consumes the resolved bytes.
type ArtifactLookup interface {
	Resolve(name string) ([]byte, error)
}

// BuildPlan converts a WorldDiff into a MigrationPlan per §4I's construction
// rules: if the world itself changes, every dependent contract/class is
// included regardless of its own diff kind; otherwise each is included only
// if Created or Updated.
func BuildPlan(diff WorldDiff, worldClass, baseClass ClassHash, seed Felt, authPolicies map[ResourceKey]AuthPolicy) MigrationPlan {
	plan := MigrationPlan{}

	worldChanged := diff.World != nil && diff.World.Kind != DiffSynced
	if worldChanged {
		plan.World = &ContractMigration{ClassHash: worldClass}
		plan.Base = &ClassMigration{Name: "base", ClassHash: baseClass}
	}

	for _, m := range diff.Models {
		if worldChanged || m.Kind != DiffSynced {
			plan.Models = append(plan.Models, ClassMigration{
				Name:      m.Local.Key.Name,
				ClassHash: m.Local.ClassHash,
			})
		}
	}

	for _, c := range diff.Contracts {
		if !worldChanged && c.Kind == DiffSynced {
			continue
		}
		salt := poseidonHashMany(chunkNameToFelts(c.Local.Key.Name))
		plan.Contracts = append(plan.Contracts, ContractMigration{
			Key:        c.Local.Key,
			ClassHash:  c.Local.ClassHash,
			Salt:       salt,
			AuthPolicy: authPolicies[c.Local.Key],
		})
	}

	if worldChanged {
		worldSalt := poseidonHash(seed)
		addr := UDCAddress(worldSalt, worldClass, []Felt{baseClass.Felt()})
		plan.WorldAddress = &addr
	}

	return plan
}

// chunkNameToFelts splits name into <=31-byte chunks and short-string
// encodes each, the per-contract deterministic salt input §4I specifies.
func chunkNameToFelts(name string) []Felt {
	var out []Felt
	for i := 0; i < len(name); i += 31 {
		end := i + 31
		if end > len(name) {
			end = len(name)
		}
		f, err := EncodeShortString(name[i:end])
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

// udcPrefix is the constant Starknet UDC mixes into its deterministic
// address computation ahead of deployer, salt, class hash, and the
// constructor-calldata hash.
var udcPrefix = mustEncodeShortString("STARKNET_CONTRACT_ADDRESS")

// UDCAddress computes the deterministic contract address the Universal
// Deployer Contract would assign for (salt, classHash, ctorArgs), as used
// by both the world address prediction and per-contract deployment.
func UDCAddress(salt Felt, classHash ClassHash, ctorArgs []Felt) ContractAddress {
	ctorHash := pedersenChain(ctorArgs...)
	h := pedersenChain(udcPrefix, FeltZero(), salt, classHash.Felt(), ctorHash)
	return AddressFromFelt(h)
}

// DeclareClass transitions a ClassMigration from NotDeclared to Declared.
// Declare is idempotent over classes: ClassAlreadyDeclared is treated as
// success, per §7's recovery policy for that error kind.
func DeclareClass(cm *ClassMigration, declare func(ClassMigration) (*TxHash, *ExecError)) {
	if cm.State != ItemNotDeclared {
		return
	}
	txHash, eerr := declare(*cm)
	if eerr != nil {
		if eerr.Kind == ErrKindClassAlreadyDeclared {
			cm.State = ItemDeclared
			cm.Result = StepResult{Outcome: StepSkipped, Reason: "already declared"}
			return
		}
		cm.Result = StepResult{Outcome: StepFailed, Kind: eerr.Kind, Reason: eerr.Error()}
		return
	}
	cm.State = ItemDeclared
	cm.Result = StepResult{Outcome: StepSucceeded, TxHash: txHash}
}

// DeployContract transitions a ContractMigration from NotDeclared or
// Declared to Deployed.
// Deploy is idempotent over addresses: if classHashAt(addr) already returns
// the expected class, the deploy is skipped.
func DeployContract(contract *ContractMigration, classHashAt func(ContractAddress) (ClassHash, bool), deploy func(ContractMigration) (*TxHash, *ExecError)) {
	if contract.State != ItemDeclared && contract.State != ItemNotDeclared {
		return
	}
	if existing, ok := classHashAt(contract.Address); ok && existing.Equal(contract.ClassHash) {
		contract.State = ItemDeployed
		contract.Result = StepResult{Outcome: StepSkipped, Reason: "already deployed at expected class"}
		return
	}
	txHash, eerr := deploy(*contract)
	if eerr != nil {
		contract.Result = StepResult{Outcome: StepFailed, Kind: eerr.Kind, Reason: eerr.Error()}
		return
	}
	contract.State = ItemDeployed
	contract.Result = StepResult{Outcome: StepSucceeded, TxHash: txHash}
}

// MigrationOutput summarizes one Execute run. Full is false whenever any
// step failed, in which case Resume(plan) reports where a retry should
// pick up.
type MigrationOutput struct {
	Full bool
}

// MigrationHooks are the chain-facing operations Execute drives. Callers
// bind these to an actual account/provider; core only sequences them.
type MigrationHooks struct {
	Declare        func(ClassMigration) (*TxHash, *ExecError)
	DeployWorld    func(ContractMigration) (*TxHash, *ExecError)
	DeployContract func(ContractMigration) (*TxHash, *ExecError)
	ClassHashAt    func(ContractAddress) (ClassHash, bool)
	RegisterModel  func(world ContractAddress, classHash ClassHash) (*TxHash, *ExecError)
	GrantWriter    func(world ContractAddress, resource ResourceKey, writer ContractAddress) (*TxHash, *ExecError)
}

// Execute runs the plan's five-phase ordering: declare the base class and
// every model class (the world class and contract classes are not declared
// here), deploy
// the world contract if it changed, register models against the world,
// deploy contracts through the UDC, then grant each contract's configured
// writers. It stops at the first failed step — the pipeline is not
// transactional across steps, and a subsequent run must resume from the
// first non-Succeeded step via Resume.
func Execute(plan *MigrationPlan, hooks MigrationHooks) MigrationOutput {
	if plan.Base != nil {
		DeclareClass(plan.Base, hooks.Declare)
		if plan.Base.Result.Outcome == StepFailed {
			return MigrationOutput{Full: false}
		}
	}
	for i := range plan.Models {
		DeclareClass(&plan.Models[i], hooks.Declare)
		if plan.Models[i].Result.Outcome == StepFailed {
			return MigrationOutput{Full: false}
		}
	}

	if plan.World != nil {
		if plan.WorldAddress != nil {
			plan.World.Address = *plan.WorldAddress
		}
		DeployContract(plan.World, hooks.ClassHashAt, hooks.DeployWorld)
		if plan.World.Result.Outcome == StepFailed {
			return MigrationOutput{Full: false}
		}
	}

	worldAddr := ContractAddress{}
	if plan.World != nil {
		worldAddr = plan.World.Address
	} else if plan.WorldAddress != nil {
		worldAddr = *plan.WorldAddress
	}

	for i := range plan.Models {
		m := &plan.Models[i]
		if m.State != ItemDeclared {
			continue
		}
		txHash, eerr := hooks.RegisterModel(worldAddr, m.ClassHash)
		if eerr != nil {
			m.Result = StepResult{Outcome: StepFailed, Kind: eerr.Kind, Reason: eerr.Error()}
			return MigrationOutput{Full: false}
		}
		m.State = ItemRegistered
		m.Result = StepResult{Outcome: StepSucceeded, TxHash: txHash}
	}

	for i := range plan.Contracts {
		DeployContract(&plan.Contracts[i], hooks.ClassHashAt, hooks.DeployContract)
		if plan.Contracts[i].Result.Outcome == StepFailed {
			return MigrationOutput{Full: false}
		}
	}

	for i := range plan.Contracts {
		c := &plan.Contracts[i]
		if c.State != ItemDeployed {
			continue
		}
		for _, writer := range c.AuthPolicy.Writers {
			txHash, eerr := hooks.GrantWriter(worldAddr, c.Key, writer)
			if eerr != nil {
				c.Result = StepResult{Outcome: StepFailed, Kind: eerr.Kind, Reason: eerr.Error()}
				return MigrationOutput{Full: false}
			}
			c.Result = StepResult{Outcome: StepSucceeded, TxHash: txHash}
		}
		c.State = ItemAuthorized
	}

	return MigrationOutput{Full: true}
}

// Resume reports which phase a partial MigrationPlan should resume from,
// by scanning for the first item whose Result.Outcome is not Succeeded.
func Resume(plan *MigrationPlan) (string, bool) {
	if plan.Base != nil && plan.Base.Result.Outcome != StepSucceeded {
		return "declare_base", true
	}
	for i := range plan.Models {
		if plan.Models[i].Result.Outcome != StepSucceeded {
			return fmt.Sprintf("declare_model:%s", plan.Models[i].Name), true
		}
	}
	if plan.World != nil && plan.World.Result.Outcome != StepSucceeded {
		return "deploy_world", true
	}
	for i := range plan.Contracts {
		if plan.Contracts[i].Result.Outcome != StepSucceeded {
			return fmt.Sprintf("deploy_contract:%s", plan.Contracts[i].Key.Name), true
		}
	}
	return "", false
}
