// Package aerodrome reads spot state from an Aerodrome (Solidly-style
// constant-product) pool over JSON-RPC. Read-only; nothing is ever signed
// or submitted.
package aerodrome

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
)

var getReservesSelector = crypto.Keccak256([]byte("getReserves()"))[:4]

// PoolConfig identifies the pool and how to interpret its reserves.
type PoolConfig struct {
	// Pair is the human-readable pair name carried on snapshots.
	Pair string

	// Address is the pool contract.
	Address common.Address

	// BaseIsToken0 says whether reserve0 is the base asset (WETH) or the
	// quote asset (USDC).
	BaseIsToken0 bool

	// BaseDecimals and QuoteDecimals scale the raw reserve integers.
	BaseDecimals  int32
	QuoteDecimals int32
}

// ParseAddress converts a hex string (with or without 0x prefix) into a
// contract address.
func ParseAddress(hex string) common.Address {
	return common.HexToAddress(hex)
}

// PoolReader fetches reserves and derives the spot price. Safe for
// concurrent use; the underlying ethclient multiplexes.
type PoolReader struct {
	client *ethclient.Client
	cfg    PoolConfig
}

// Dial connects to the JSON-RPC endpoint and returns a PoolReader.
func Dial(ctx context.Context, rpcURL string, cfg PoolConfig) (*PoolReader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("aerodrome: dial %s: %w", rpcURL, err)
	}
	return &PoolReader{client: client, cfg: cfg}, nil
}

// Close releases the RPC connection.
func (r *PoolReader) Close() {
	r.client.Close()
}

// Snapshot reads the pool reserves and returns a DEX price snapshot with the
// spot price (quote per base) and both reserves in asset units.
func (r *PoolReader) Snapshot(ctx context.Context) (domain.PriceSnapshot, error) {
	const op = "aerodrome.getReserves"

	ret, err := r.client.CallContract(ctx, ethereum.CallMsg{
		To:   &r.cfg.Address,
		Data: getReservesSelector,
	}, nil)
	if err != nil {
		return domain.PriceSnapshot{}, classifyRPCError(op, err)
	}
	// (uint256 reserve0, uint256 reserve1, uint256 blockTimestampLast)
	if len(ret) < 96 {
		return domain.PriceSnapshot{}, domain.Permanent(op,
			fmt.Errorf("short return data: %d bytes", len(ret)))
	}
	reserve0 := new(big.Int).SetBytes(ret[0:32])
	reserve1 := new(big.Int).SetBytes(ret[32:64])

	baseRaw, quoteRaw := reserve0, reserve1
	if !r.cfg.BaseIsToken0 {
		baseRaw, quoteRaw = reserve1, reserve0
	}
	base := decimal.NewFromBigInt(baseRaw, -r.cfg.BaseDecimals)
	quote := decimal.NewFromBigInt(quoteRaw, -r.cfg.QuoteDecimals)
	if !base.IsPositive() || !quote.IsPositive() {
		return domain.PriceSnapshot{}, domain.Permanent(op,
			fmt.Errorf("empty pool: base=%s quote=%s", base, quote))
	}

	return domain.PriceSnapshot{
		Source:       domain.SourceDEX,
		Pair:         r.cfg.Pair,
		Price:        quote.Div(base),
		ReserveBase:  base,
		ReserveQuote: quote,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// GasPriceGwei returns the node's suggested gas price in gwei.
func (r *PoolReader) GasPriceGwei(ctx context.Context) (decimal.Decimal, error) {
	const op = "aerodrome.gasPrice"

	wei, err := r.client.SuggestGasPrice(ctx)
	if err != nil {
		return decimal.Zero, classifyRPCError(op, err)
	}
	return decimal.NewFromBigInt(wei, -9), nil
}

// classifyRPCError treats execution reverts and ABI-level faults as
// permanent; everything else (timeouts, connection drops, node hiccups) is
// transient and worth retrying.
func classifyRPCError(op string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution reverted") || strings.Contains(msg, "invalid opcode") {
		return domain.Permanent(op, err)
	}
	return domain.Transient(op, err)
}
