// Package chain holds the on-chain integrations: the trade execution
// contract and the price oracle, both reached over a JSON-RPC endpoint.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

// executorABI covers the subset of the trading contract the bot calls.
const executorABI = `[
  {"name":"executeTrade","type":"function","stateMutability":"nonpayable",
   "inputs":[{"name":"user","type":"address"},{"name":"marketId","type":"string"},
             {"name":"amount","type":"uint256"},{"name":"isYes","type":"bool"}],
   "outputs":[]},
  {"name":"getUserAllowance","type":"function","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"name":"getUserTier","type":"function","stateMutability":"view",
   "inputs":[{"name":"user","type":"address"}],
   "outputs":[{"name":"","type":"uint8"}]},
  {"name":"getMaxPositionForTier","type":"function","stateMutability":"view",
   "inputs":[{"name":"tier","type":"uint8"}],
   "outputs":[{"name":"","type":"uint256"}]}
]`

// gasBufferNum/gasBufferDen apply a 20% headroom on top of the gas estimate.
const (
	gasBufferNum = 120
	gasBufferDen = 100
)

// Provider submits trades through the execution contract and reads the
// per-user allowance and tier limits from it. All transactions are signed
// with the service key and confirmed before returning.
type Provider struct {
	client     *ethclient.Client
	contract   common.Address
	parsedABI  abi.ABI
	signerKey  *ecdsa.PrivateKey
	signerAddr common.Address
	chainID    *big.Int
	logger     *slog.Logger
}

var _ domain.ExecutionProvider = (*Provider)(nil)

// NewProvider dials the RPC endpoint and binds the execution contract.
func NewProvider(ctx context.Context, rpcURL, contractAddr string, signerKey *ecdsa.PrivateKey, logger *slog.Logger) (*Provider, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: chain id: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(executorABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: parse executor abi: %w", err)
	}

	return &Provider{
		client:     client,
		contract:   common.HexToAddress(contractAddr),
		parsedABI:  parsed,
		signerKey:  signerKey,
		signerAddr: ethcrypto.PubkeyToAddress(signerKey.PublicKey),
		chainID:    chainID,
		logger:     logger.With(slog.String("component", "chain_provider")),
	}, nil
}

// Close releases the RPC connection.
func (p *Provider) Close() {
	p.client.Close()
}

// Client exposes the underlying RPC client so other readers on the same
// chain, like the price oracle, can share the connection.
func (p *Provider) Client() *ethclient.Client {
	return p.client
}

// ExecuteTrade packs and signs an executeTrade call, submits it, and waits
// for the receipt. A mined transaction with a failed status is an execution
// failure, not a success with a warning.
func (p *Provider) ExecuteTrade(ctx context.Context, wallet, marketID string, amountUSDC int64, isYes bool) (string, error) {
	data, err := p.parsedABI.Pack("executeTrade",
		common.HexToAddress(wallet), marketID, big.NewInt(amountUSDC), isYes)
	if err != nil {
		return "", fmt.Errorf("chain: pack executeTrade: %w", err)
	}

	nonce, err := p.client.PendingNonceAt(ctx, p.signerAddr)
	if err != nil {
		return "", fmt.Errorf("chain: pending nonce: %w", err)
	}

	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("chain: suggest gas price: %w", err)
	}

	gasLimit, err := p.client.EstimateGas(ctx, ethereum.CallMsg{
		From: p.signerAddr,
		To:   &p.contract,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("chain: estimate gas: %w", err)
	}
	gasLimit = gasLimit * gasBufferNum / gasBufferDen

	tx := types.NewTransaction(nonce, p.contract, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(p.chainID), p.signerKey)
	if err != nil {
		return "", fmt.Errorf("chain: sign tx: %w", err)
	}

	if err := p.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("chain: send tx: %w", err)
	}

	txHash := signed.Hash().Hex()
	p.logger.Info("trade transaction submitted",
		slog.String("tx_hash", txHash),
		slog.String("market_id", marketID),
		slog.Int64("amount", amountUSDC),
		slog.Bool("is_yes", isYes))

	receipt, err := bind.WaitMined(ctx, p.client, signed)
	if err != nil {
		return "", fmt.Errorf("chain: wait mined %s: %w", txHash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("chain: tx %s reverted: %w", txHash, domain.ErrExecutionFailed)
	}

	return txHash, nil
}

// UserAllowance reads the user's remaining spend allowance in fixed-point 1e6.
func (p *Provider) UserAllowance(ctx context.Context, wallet string) (int64, error) {
	out, err := p.callView(ctx, "getUserAllowance", common.HexToAddress(wallet))
	if err != nil {
		return 0, err
	}
	return bigToInt64(out[0], "allowance")
}

// UserTier reads the user's on-chain subscription tier.
func (p *Provider) UserTier(ctx context.Context, wallet string) (int64, error) {
	out, err := p.callView(ctx, "getUserTier", common.HexToAddress(wallet))
	if err != nil {
		return 0, err
	}
	tier, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("chain: unexpected tier type %T", out[0])
	}
	return int64(tier), nil
}

// MaxPositionForTier reads a tier's position ceiling in fixed-point 1e6.
func (p *Provider) MaxPositionForTier(ctx context.Context, tier int64) (int64, error) {
	out, err := p.callView(ctx, "getMaxPositionForTier", uint8(tier))
	if err != nil {
		return 0, err
	}
	return bigToInt64(out[0], "max position")
}

func (p *Provider) callView(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := p.parsedABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}

	res, err := p.client.CallContract(ctx, ethereum.CallMsg{
		To:   &p.contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}

	out, err := p.parsedABI.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("chain: %s returned no values", method)
	}
	return out, nil
}

func bigToInt64(v any, what string) (int64, error) {
	b, ok := v.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("chain: unexpected %s type %T", what, v)
	}
	if !b.IsInt64() {
		return 0, fmt.Errorf("chain: %s %s overflows int64", what, b.String())
	}
	return b.Int64(), nil
}
