package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// logMessageToL2Signature is the StarknetCore event this bridge watches:
// LogMessageToL2(address indexed from, uint256 indexed to, uint256 indexed
// selector, uint256[] payload, uint256 nonce, uint256 fee).
var logMessageToL2Signature = crypto.Keccak256Hash([]byte("LogMessageToL2(address,uint256,uint256,uint256[],uint256,uint256)"))

var logMessageToL2NonIndexedArgs = abi.Arguments{
	{Name: "payload", Type: mustABIType("uint256[]")},
	{Name: "nonce", Type: mustABIType("uint256")},
	{Name: "fee", Type: mustABIType("uint256")},
}

func mustABIType(s string) abi.Type {
	t, err := abi.NewType(s, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

// addMessageHashesABI is the argument list of
// addMessageHashesFromL2(bytes32[]), the batch-settlement entry point on the
// L1 messaging contract.
var addMessageHashesABI = abi.Arguments{
	{Name: "hashes", Type: mustABIType("bytes32[]")},
}

// EthProvider implements L1Provider against a real Ethereum JSON-RPC node
// via go-ethereum's ethclient, the same client family the teacher's virtual
// machine and account packages build on.
type EthProvider struct {
	client  *ethclient.Client
	signer  *bind.TransactOpts
	chainID *big.Int
}

// NewEthProvider dials rpcURL and derives a transact signer from the given
// hex-encoded private key, used to submit addMessageHashesFromL2 batches.
func NewEthProvider(ctx context.Context, rpcURL, privateKeyHex string) (*EthProvider, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, NewKindedError(ErrKindRpcTransient, err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, NewKindedError(ErrKindRpcTransient, err)
	}
	key, err := crypto.HexToECDSA(trimHexPrefix(privateKeyHex))
	if err != nil {
		return nil, NewKindedError(ErrKindRpcPermanent, err)
	}
	signer, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, NewKindedError(ErrKindRpcPermanent, err)
	}
	return &EthProvider{client: client, signer: signer, chainID: chainID}, nil
}

// BlockNumber returns L1's current block height.
func (p *EthProvider) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := p.client.BlockNumber(ctx)
	if err != nil {
		return 0, NewKindedError(ErrKindRpcTransient, err)
	}
	return n, nil
}

// LogMessagesToL2 fetches LogMessageToL2 events emitted by contract in
// [fromBlock, toBlock] and decodes each into an L1Log.
func (p *EthProvider) LogMessagesToL2(ctx context.Context, contract [20]byte, fromBlock, toBlock uint64) ([]L1Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{logMessageToL2Signature}},
	}
	logs, err := p.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, NewKindedError(ErrKindRpcTransient, err)
	}

	out := make([]L1Log, 0, len(logs))
	for _, lg := range logs {
		parsed, err := decodeLogMessageToL2(lg)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out, nil
}

func decodeLogMessageToL2(lg types.Log) (L1Log, error) {
	if len(lg.Topics) != 4 {
		return L1Log{}, ErrInvalidProof
	}
	from := common.BytesToAddress(lg.Topics[1].Bytes())
	toAddress := FeltFromBigInt(lg.Topics[2].Big())
	selector := FeltFromBigInt(lg.Topics[3].Big())

	values, err := logMessageToL2NonIndexedArgs.Unpack(lg.Data)
	if err != nil {
		return L1Log{}, err
	}
	rawPayload := values[0].([]*big.Int)
	nonce := values[1].(*big.Int)
	fee := values[2].(*big.Int)

	payload := make([]Felt, len(rawPayload))
	for i, v := range rawPayload {
		payload[i] = FeltFromBigInt(v)
	}

	return L1Log{
		BlockNumber: lg.BlockNumber,
		LogIndex:    uint64(lg.Index),
		FromAddress: AddressFromFelt(FeltFromBigInt(new(big.Int).SetBytes(from.Bytes()))),
		ToAddress:   AddressFromFelt(toAddress),
		Selector:    selector,
		Payload:     payload,
		Nonce:       FeltFromBigInt(nonce),
		FeeOnL1:     fee.Uint64(),
	}, nil
}

// AddMessageHashesFromL2 submits a batch of settled message hashes to the L1
// messaging contract via a plain calldata transaction, since this bridge
// does not carry the contract's full ABI bindings.
func (p *EthProvider) AddMessageHashesFromL2(ctx context.Context, contract [20]byte, hashes [][32]byte) error {
	args := make([][32]byte, len(hashes))
	copy(args, hashes)
	packed, err := addMessageHashesABI.Pack(args)
	if err != nil {
		return NewKindedError(ErrKindRpcPermanent, err)
	}
	selector := crypto.Keccak256([]byte("addMessageHashesFromL2(bytes32[])"))[:4]
	data := append(selector, packed...)

	nonce, err := p.client.PendingNonceAt(ctx, p.signer.From)
	if err != nil {
		return NewKindedError(ErrKindRpcTransient, err)
	}
	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return NewKindedError(ErrKindRpcTransient, err)
	}
	to := common.Address(contract)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      200_000,
		GasPrice: gasPrice,
		Data:     data,
	})
	signedTx, err := p.signer.Signer(p.signer.From, tx)
	if err != nil {
		return NewKindedError(ErrKindRpcPermanent, err)
	}
	if err := p.client.SendTransaction(ctx, signedTx); err != nil {
		return NewKindedError(ErrKindRpcTransient, err)
	}
	return nil
}
