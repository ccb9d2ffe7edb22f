package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/signalbot/internal/domain"
)

// aggregatorABI is the read surface of an AggregatorV3-style price feed.
const aggregatorABI = `[
  {"name":"latestRoundData","type":"function","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"roundId","type":"uint80"},{"name":"answer","type":"int256"},
              {"name":"startedAt","type":"uint256"},{"name":"updatedAt","type":"uint256"},
              {"name":"answeredInRound","type":"uint80"}]},
  {"name":"decimals","type":"function","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"uint8"}]}
]`

// Oracle reads the reference price from an on-chain aggregator feed. It is
// the monitor's primary price source.
type Oracle struct {
	client    *ethclient.Client
	feed      common.Address
	parsedABI abi.ABI
	logger    *slog.Logger

	decimalsMu  sync.Mutex
	decimals    uint8
	decimalsSet bool
}

var _ domain.PriceSource = (*Oracle)(nil)

// NewOracle binds an aggregator feed on an existing RPC client.
func NewOracle(client *ethclient.Client, feedAddr string, logger *slog.Logger) (*Oracle, error) {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("chain: parse aggregator abi: %w", err)
	}
	return &Oracle{
		client:    client,
		feed:      common.HexToAddress(feedAddr),
		parsedABI: parsed,
		logger:    logger.With(slog.String("component", "chain_oracle")),
	}, nil
}

// LatestPrice reads latestRoundData and scales the answer by the feed's
// decimals. The point's timestamp is the round's updatedAt.
func (o *Oracle) LatestPrice(ctx context.Context) (*domain.PricePoint, error) {
	decimals, err := o.feedDecimals(ctx)
	if err != nil {
		return nil, err
	}

	out, err := o.call(ctx, "latestRoundData")
	if err != nil {
		return nil, err
	}
	if len(out) != 5 {
		return nil, fmt.Errorf("chain: latestRoundData returned %d values", len(out))
	}

	answer, ok := out[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: unexpected answer type %T", out[1])
	}
	updatedAt, ok := out[3].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: unexpected updatedAt type %T", out[3])
	}

	return &domain.PricePoint{
		Price:     scaleAnswer(answer, decimals),
		Timestamp: time.Unix(updatedAt.Int64(), 0).UTC(),
	}, nil
}

// feedDecimals reads the feed's decimals, caching the value after the first
// successful read. Feeds never change decimals after deployment; a failed
// read is retried on the next call.
func (o *Oracle) feedDecimals(ctx context.Context) (uint8, error) {
	o.decimalsMu.Lock()
	defer o.decimalsMu.Unlock()
	if o.decimalsSet {
		return o.decimals, nil
	}

	out, err := o.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("chain: unexpected decimals type %T", out[0])
	}
	o.decimals = d
	o.decimalsSet = true
	return d, nil
}

func (o *Oracle) call(ctx context.Context, method string) ([]any, error) {
	data, err := o.parsedABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}
	res, err := o.client.CallContract(ctx, ethereum.CallMsg{To: &o.feed, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}
	out, err := o.parsedABI.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("chain: %s returned no values", method)
	}
	return out, nil
}

// scaleAnswer converts a fixed-point feed answer to a float price.
func scaleAnswer(answer *big.Int, decimals uint8) float64 {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value := new(big.Float).SetInt(answer)
	price, _ := new(big.Float).Quo(value, scale).Float64()
	return price
}
