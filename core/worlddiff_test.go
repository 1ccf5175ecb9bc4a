package core

import "testing"

// TestWorldDiffSyncedThenUpdated is scenario S6 from spec.md §8: a local
// model whose current class hash matches the remote's last() emits Synced;
// pushing a new class hash to the remote flips the same compare to Updated.
func TestWorldDiffSyncedThenUpdated(t *testing.T) {
	key := ResourceKey{Namespace: "ns", Name: "Position"}
	classV1 := ClassHashFromFelt(FeltFromUint64(1))
	classV2 := ClassHashFromFelt(FeltFromUint64(2))

	local := WorldLocal{
		Models: []ResourceLocal{{Key: key, ClassHash: classV1}},
	}
	remote := WorldRemote{
		Resources: map[ResourceKey]ResourceRemote{
			key: {Key: key, ClassHashes: []ClassHash{classV1}},
		},
	}

	diff := Compare(local, remote)
	if len(diff.Models) != 1 || diff.Models[0].Kind != DiffSynced {
		t.Fatalf("expected Synced, got %+v", diff.Models)
	}

	remote.Resources[key] = ResourceRemote{Key: key, ClassHashes: []ClassHash{classV1, classV2}}
	diff2 := Compare(local, remote)
	if len(diff2.Models) != 1 || diff2.Models[0].Kind != DiffUpdated {
		t.Fatalf("expected Updated after remote upgrade, got %+v", diff2.Models)
	}
}

func TestWorldDiffCreatedWhenAbsentRemotely(t *testing.T) {
	key := ResourceKey{Namespace: "ns", Name: "NewModel"}
	local := WorldLocal{Models: []ResourceLocal{{Key: key, ClassHash: ClassHashFromFelt(FeltFromUint64(9))}}}
	remote := WorldRemote{Resources: map[ResourceKey]ResourceRemote{}}

	diff := Compare(local, remote)
	if len(diff.Models) != 1 || diff.Models[0].Kind != DiffCreated {
		t.Fatalf("expected Created, got %+v", diff.Models)
	}
}

func TestUpgradeFoldKeepsOnlyLatest(t *testing.T) {
	addr := AddressFromFelt(FeltFromUint64(42))
	classA := ClassHashFromFelt(FeltFromUint64(1))
	classB := ClassHashFromFelt(FeltFromUint64(2))

	remote := ReconstructRemote(
		AddressFromFelt(FeltFromUint64(1)), ClassHashFromFelt(FeltFromUint64(0)), ClassHashFromFelt(FeltFromUint64(0)),
		[]deployEvent{{blockNumber: 1, classHash: classA, address: addr}},
		[]upgradeEvent{
			{blockNumber: 5, classHash: classB, address: addr},
			{blockNumber: 3, classHash: classA, address: addr},
		},
		nil,
		stubNameResolver{},
	)

	var got ResourceRemote
	for _, r := range remote.Resources {
		got = r
	}
	if !got.Current().Equal(classB) {
		t.Fatalf("expected latest class hash classB, got %v", got.Current())
	}
}

type stubNameResolver struct{}

func (stubNameResolver) DojoResourceName(addr ContractAddress) (string, bool) { return "", false }
