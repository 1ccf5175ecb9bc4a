package core

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// pedersenChain folds a sequence of field elements into one, the same shape
// as Starknet's pedersen_chain (h = pedersen(...pedersen(pedersen(0, x0), x1)..., xn),
// finished with the element count). The real construction runs Pedersen
// hashing over the Stark elliptic curve; no dependency in the example
// corpus ships Stark-curve point arithmetic (the corpus's curve libraries —
// gnark-crypto, decred secp256k1, BLS12-381 — all target different curves),
// so this is a documented stand-in: a SHA-256 compression chain reduced
// into the field, good enough for local content-addressing and explicitly
// not claimed to interoperate with an external Starknet client (mirrors
// spec.md §9's note that the L1<->L2 hash scheme here is local-only).
func pedersenChain(elems ...Felt) Felt {
	acc := FeltZero()
	for _, e := range elems {
		acc = pedersenStep(acc, e)
	}
	return pedersenStep(acc, FeltFromUint64(uint64(len(elems))))
}

func pedersenStep(a, b Felt) Felt {
	h := sha256.New()
	ab := a.Bytes32()
	bb := b.Bytes32()
	h.Write(ab[:])
	h.Write(bb[:])
	return FeltFromBigInt(new(big.Int).SetBytes(h.Sum(nil)))
}

// poseidonHash is the Poseidon-shaped stand-in used for the receipt
// commitment and Poseidon-hash-many calls in the migration strategy. Same
// justification as pedersenChain: no Poseidon-over-the-Stark-field
// implementation ships in the retrieved corpus.
func poseidonHash(elems ...Felt) Felt {
	h := sha256.New()
	h.Write([]byte("poseidon"))
	for _, e := range elems {
		b := e.Bytes32()
		h.Write(b[:])
	}
	return FeltFromBigInt(new(big.Int).SetBytes(h.Sum(nil)))
}

// poseidonHashMany hashes an arbitrary slice of felts, used by the
// migration strategy's deterministic per-contract salt derivation.
func poseidonHashMany(elems []Felt) Felt { return poseidonHash(elems...) }

// messagesHash computes H(messages) = Poseidon(n, {from, to, Poseidon(len, payload...)}*)
// as specified for the receipt hash's message component.
func messagesHash(msgs []Message) Felt {
	parts := []Felt{FeltFromUint64(uint64(len(msgs)))}
	for _, m := range msgs {
		payloadParts := append([]Felt{FeltFromUint64(uint64(len(m.Payload)))}, m.Payload...)
		parts = append(parts, m.From.Felt(), feltFromL1Address(m.To), poseidonHash(payloadParts...))
	}
	return poseidonHash(parts...)
}

func feltFromL1Address(addr [20]byte) Felt {
	var buf [32]byte
	copy(buf[12:], addr[:])
	return FeltFromBytes32(buf)
}

// ReceiptHash computes Poseidon(tx_hash, fee, H(messages_to_l1), revert_hash, 0, gas_consumed)
// as specified in the data model.
func ReceiptHash(txHash TxHash, r Receipt) Felt {
	revertHash := FeltZero()
	if r.RevertReason != nil {
		rh, _ := EncodeShortString(truncateForShortString(*r.RevertReason))
		revertHash = rh
	}
	return poseidonHash(
		txHash.Felt(),
		r.FeeInfo.ActualFee,
		messagesHash(r.MessagesToL1),
		revertHash,
		FeltZero(),
		FeltFromUint64(r.ResourcesUsed.Steps),
	)
}

func truncateForShortString(s string) string {
	if len(s) > 31 {
		return s[:31]
	}
	return s
}

// declarePrefix / invokePrefix are the short-string prefixes mixed into
// transaction hash v1 computation.
var declarePrefix = mustEncodeShortString("declare")
var invokePrefix = mustEncodeShortString("invoke")

func mustEncodeShortString(s string) Felt {
	f, err := EncodeShortString(s)
	if err != nil {
		panic(err)
	}
	return f
}

// TransactionHashV1 computes the v1 declare/invoke transaction hash:
// pedersen_chain([prefix, version, sender, 0, pedersen_chain(inputs), max_fee, chain_id, nonce]).
func TransactionHashV1(isDeclare bool, version uint8, sender ContractAddress, inputs []Felt, maxFee Felt, chainID Felt, nonce Felt) TxHash {
	prefix := invokePrefix
	if isDeclare {
		prefix = declarePrefix
	}
	inner := pedersenChain(inputs...)
	h := pedersenChain(
		prefix,
		FeltFromUint64(uint64(version)),
		sender.Felt(),
		FeltZero(),
		inner,
		maxFee,
		chainID,
		nonce,
	)
	return TxHashFromFelt(h)
}

// L1MessageHash computes keccak256(from || to || len(payload) || payload_i*)
// with every field big-endian 32-byte aligned, as consumed by the L1
// messaging contract's add_message_hashes_from_l2.
func L1MessageHash(from ContractAddress, to [20]byte, payload []Felt) [32]byte {
	buf := make([]byte, 0, 32*(3+len(payload)))
	fromBuf := from.Felt().Bytes32()
	buf = append(buf, fromBuf[:]...)
	var toBuf [32]byte
	copy(toBuf[12:], to[:])
	buf = append(buf, toBuf[:]...)
	var lenBuf [32]byte
	binary.BigEndian.PutUint64(lenBuf[24:], uint64(len(payload)))
	buf = append(buf, lenBuf[:]...)
	for _, p := range payload {
		pb := p.Bytes32()
		buf = append(buf, pb[:]...)
	}
	return crypto.Keccak256Hash(buf)
}

// L1HandlerTxHash derives the local-only hash scheme documented in
// spec.md §9 as a stand-in for the canonical upstream scheme.
func L1HandlerTxHash(nonce Felt, contractAddress ContractAddress) TxHash {
	return TxHashFromFelt(pedersenChain(nonce, contractAddress.Felt()))
}
