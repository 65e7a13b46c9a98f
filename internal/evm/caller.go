package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts = 5
	defaultRateLimit   = 8
)

// ContractBackend is the read-only subset of ethclient the caller
// needs. Tests substitute a fake.
type ContractBackend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Options configures a Caller.
type Options struct {
	// RateLimit is the sustained eth_call budget per second.
	RateLimit float64

	// Throttle is the pause between consecutive adapter items.
	Throttle time.Duration

	// MaxAttempts bounds retries of rate-limited calls.
	MaxAttempts int
}

// Caller executes eth_call requests against a single RPC endpoint.
// Rate-limited calls are retried with exponential backoff; every other
// error is returned to the adapter immediately.
type Caller struct {
	backend     ContractBackend
	limiter     *rate.Limiter
	throttle    time.Duration
	maxAttempts int

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCaller wraps an existing backend.
func NewCaller(backend ContractBackend, opts Options) *Caller {
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &Caller{
		backend:     backend,
		limiter:     rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		throttle:    opts.Throttle,
		maxAttempts: opts.MaxAttempts,
		sleep:       sleepCtx,
	}
}

// Dial connects to an RPC endpoint and wraps it in a Caller.
func Dial(ctx context.Context, rpcURL string, opts Options) (*Caller, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rpcURL, err)
	}
	return NewCaller(client, opts), nil
}

// IsRateLimited reports whether an RPC error is the node shedding
// load, as opposed to a real call failure.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limited") || strings.Contains(msg, "-32005")
}

// Throttle pauses between adapter items to stay under the node's
// request budget.
func (c *Caller) Throttle(ctx context.Context) error {
	if c.throttle <= 0 {
		return nil
	}
	return c.sleep(ctx, c.throttle)
}

// Call packs and executes a view method and returns the unpacked
// outputs.
func (c *Caller) Call(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: input}

	var output []byte
	for attempt := 1; ; attempt++ {
		if err = c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		output, err = c.backend.CallContract(ctx, msg, nil)
		if err == nil {
			break
		}
		if !IsRateLimited(err) || attempt >= c.maxAttempts {
			return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		logrus.Warnf("RPC rate limited calling %s on %s, retrying in %s (attempt %d/%d)",
			method, to.Hex(), backoff, attempt, c.maxAttempts)
		if err = c.sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	out, err := contractABI.Unpack(method, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s from %s: %w", method, to.Hex(), err)
	}
	return out, nil
}

// String calls a view method returning a single string.
func (c *Caller) String(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (string, error) {
	out, err := c.Call(ctx, to, contractABI, method, args...)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// BigInt calls a view method returning a single integer.
func (c *Caller) BigInt(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.Call(ctx, to, contractABI, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Address calls a view method returning a single address.
func (c *Caller) Address(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (common.Address, error) {
	out, err := c.Call(ctx, to, contractABI, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// Addresses calls a view method returning an address array.
func (c *Caller) Addresses(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]common.Address, error) {
	out, err := c.Call(ctx, to, contractABI, method, args...)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}

// Uint8 calls a view method returning a single uint8.
func (c *Caller) Uint8(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) (uint8, error) {
	out, err := c.Call(ctx, to, contractABI, method, args...)
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(out[0], new(uint8)).(*uint8), nil
}

// ReserveData calls getReserveData and decodes the reserve tuple.
func (c *Caller) ReserveData(ctx context.Context, pool, asset common.Address) (*ReserveData, error) {
	out, err := c.Call(ctx, pool, LendingPoolABI, "getReserveData", asset)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(ReserveData)).(*ReserveData), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
