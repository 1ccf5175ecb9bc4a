package core

import "sort"

// ResourceKey identifies a world resource by its namespace-qualified name.
type ResourceKey struct {
	Namespace string
	Name      string
}

// ResourceLocal is a declared-but-not-necessarily-deployed resource,
// discovered from the build artifacts tree.
type ResourceLocal struct {
	Key       ResourceKey
	ClassHash ClassHash
	Sierra    []byte
	Casm      []byte
	Version   uint64 // only meaningful for libraries
}

// ResourceRemote is the on-chain reconstructed view of a resource: its full
// upgrade history plus current ACLs. Current() always reports the last
// entry of ClassHashes.
type ResourceRemote struct {
	Key         ResourceKey
	ClassHashes []ClassHash // chronological; last() is current
	Address     ContractAddress
	Owners      map[ContractAddress]struct{}
	Writers     map[ContractAddress]struct{}
}

// Current returns the resource's current class hash.
func (r ResourceRemote) Current() ClassHash {
	return r.ClassHashes[len(r.ClassHashes)-1]
}

// WorldLocal is the declared world discovered from build artifacts.
type WorldLocal struct {
	WorldClass ClassHash
	BaseClass  ClassHash
	Models     []ResourceLocal
	Contracts  []ResourceLocal
}

// WorldRemote is the deployed world reconstructed from on-chain events.
type WorldRemote struct {
	World     ContractAddress
	WorldClass ClassHash
	Base      ClassHash
	Resources map[ResourceKey]ResourceRemote
}

// DiffKind tags how a local resource compares to its remote counterpart.
type DiffKind uint8

const (
	DiffCreated DiffKind = iota
	DiffUpdated
	DiffSynced
)

// ResourceDiff is the outcome of comparing one local resource to its remote
// counterpart, if any.
type ResourceDiff struct {
	Kind   DiffKind
	Local  ResourceLocal
	Remote *ResourceRemote // nil when Kind == DiffCreated
}

// WorldDiff is the full comparison result between a WorldLocal and a
// WorldRemote.
type WorldDiff struct {
	World     *ResourceDiff
	Models    []ResourceDiff
	Contracts []ResourceDiff
}

// Compare implements §4H's algorithm: pair by (namespace, name), compare
// current class hash, classify Created/Updated/Synced. Remote resources
// absent locally are never surfaced — the system never removes remote
// resources.
func Compare(local WorldLocal, remote WorldRemote) WorldDiff {
	diff := WorldDiff{}

	if local.WorldClass != remote.WorldClass {
		diff.World = &ResourceDiff{
			Kind: classifyKind(local.WorldClass, remote.WorldClass, true),
		}
	}

	diff.Models = compareResources(local.Models, remote.Resources)
	diff.Contracts = compareResources(local.Contracts, remote.Resources)
	return diff
}

func classifyKind(localHash, remoteHash ClassHash, remoteExists bool) DiffKind {
	if !remoteExists {
		return DiffCreated
	}
	if localHash.Equal(remoteHash) {
		return DiffSynced
	}
	return DiffUpdated
}

func compareResources(locals []ResourceLocal, remotes map[ResourceKey]ResourceRemote) []ResourceDiff {
	var out []ResourceDiff
	for _, l := range locals {
		remote, ok := remotes[l.Key]
		if !ok {
			out = append(out, ResourceDiff{Kind: DiffCreated, Local: l})
			continue
		}
		kind := DiffSynced
		if !l.ClassHash.Equal(remote.Current()) {
			kind = DiffUpdated
		}
		r := remote
		out = append(out, ResourceDiff{Kind: kind, Local: l, Remote: &r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Local.Key.Namespace != out[j].Local.Key.Namespace {
			return out[i].Local.Key.Namespace < out[j].Local.Key.Namespace
		}
		return out[i].Local.Key.Name < out[j].Local.Key.Name
	})
	return out
}

// upgradeEvent is the shape a ContractUpgraded log carries, used to fold
// the remote reconstruction's "retain only the latest (block_number,
// class_hash) per address" rule.
type upgradeEvent struct {
	blockNumber BlockNumber
	classHash   ClassHash
	address     ContractAddress
}

// deployEvent is the shape a ContractDeployed log carries.
type deployEvent struct {
	blockNumber BlockNumber
	salt        Felt
	classHash   ClassHash
	address     ContractAddress
}

// modelRegisteredEvent is the shape a ModelRegistered log carries.
type modelRegisteredEvent struct {
	blockNumber    BlockNumber
	name           string
	classHash      ClassHash
	prevClassHash  ClassHash
}

// nameResolver recovers a deployed contract's declared name via its
// dojo_resource selector; missing dojo_resource yields an empty name,
// accepted per §4H.
type nameResolver interface {
	DojoResourceName(addr ContractAddress) (string, bool)
}

// ReconstructRemote folds deploys, then upgrades, then model registrations
// into a WorldRemote, implementing §4H's remote reconstruction algorithm.
// Each slice is taken in the order given; it is not sorted. For upgrades
// only the highest block number per address is kept, whatever the order.
func ReconstructRemote(world ContractAddress, worldClass, base ClassHash, deploys []deployEvent, upgrades []upgradeEvent, models []modelRegisteredEvent, names nameResolver) WorldRemote {
	remote := WorldRemote{
		World:      world,
		WorldClass: worldClass,
		Base:       base,
		Resources:  make(map[ResourceKey]ResourceRemote),
	}

	byAddress := make(map[ContractAddress]ResourceRemote)
	latestUpgradeBlock := make(map[ContractAddress]BlockNumber)

	for _, d := range deploys {
		name, _ := names.DojoResourceName(d.address)
		key := ResourceKey{Name: name}
		byAddress[d.address] = ResourceRemote{
			Key:         key,
			ClassHashes: []ClassHash{d.classHash},
			Address:     d.address,
			Owners:      make(map[ContractAddress]struct{}),
			Writers:     make(map[ContractAddress]struct{}),
		}
	}

	for _, u := range upgrades {
		if last, ok := latestUpgradeBlock[u.address]; ok && last >= u.blockNumber {
			continue
		}
		latestUpgradeBlock[u.address] = u.blockNumber
		r, ok := byAddress[u.address]
		if !ok {
			name, _ := names.DojoResourceName(u.address)
			r = ResourceRemote{Key: ResourceKey{Name: name}, Address: u.address, Owners: map[ContractAddress]struct{}{}, Writers: map[ContractAddress]struct{}{}}
		}
		r.ClassHashes = []ClassHash{u.classHash}
		byAddress[u.address] = r
	}

	for _, r := range byAddress {
		remote.Resources[r.Key] = r
	}

	for _, m := range models {
		key := ResourceKey{Name: m.name}
		remote.Resources[key] = ResourceRemote{
			Key:         key,
			ClassHashes: []ClassHash{m.classHash},
			Owners:      make(map[ContractAddress]struct{}),
			Writers:     make(map[ContractAddress]struct{}),
		}
	}

	return remote
}
