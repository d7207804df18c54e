// Package batch runs bounded-concurrency execution of independent
// operations against a Network handle, preserving input order in the
// result set regardless of completion order.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/constellation-network/sdk-go/address"
	"github.com/constellation-network/sdk-go/network"
	"github.com/constellation-network/sdk-go/pkg/errs"
	"github.com/constellation-network/sdk-go/txn"
	"github.com/constellation-network/sdk-go/validate"
)

// DefaultConcurrency is the default number of in-flight operations.
const DefaultConcurrency = 32

// Kind names what an Operation does.
type Kind string

const (
	// KindSubmit submits a signed envelope.
	KindSubmit Kind = "submit"
	// KindBalance fetches a balance.
	KindBalance Kind = "balance"
	// KindOrdinal fetches the current ordinal for an address.
	KindOrdinal Kind = "ordinal"
	// KindTransactions fetches up to Limit transactions for an address.
	KindTransactions Kind = "transactions"
	// KindRecentTransactions fetches up to Limit transactions across the
	// whole deployment, ignoring Address.
	KindRecentTransactions Kind = "recent_transactions"
	// KindNodeInfo fetches the targeted node's identity and version.
	KindNodeInfo Kind = "node_info"
	// KindClusterInfo fetches the cluster's known peers.
	KindClusterInfo Kind = "cluster_info"
)

// Operation is one unit of batch work. ID must be unique within a batch.
// Which of Envelope, Address, and Limit apply depends on Kind: Envelope
// for KindSubmit; Address for KindBalance, KindOrdinal, and
// KindTransactions; Limit for KindTransactions and
// KindRecentTransactions. KindNodeInfo and KindClusterInfo need none of
// them.
type Operation struct {
	ID       string
	Kind     Kind
	Envelope address.Envelope
	Address  string
	Limit    int
}

// Result is the outcome of one Operation, in the same position as its
// input within Engine.Run's returned slice. Only the field matching the
// operation's Kind is populated.
type Result struct {
	ID           string
	SubmitResult *network.SubmitResult
	Balance      *network.Balance
	Ordinal      *uint64
	Transactions []network.TransactionRecord
	NodeInfo     *network.NodeInfo
	ClusterInfo  *network.ClusterInfo
	Err          error
	DurationMS   int64
}

// Stats summarizes a completed batch run.
type Stats struct {
	Total               int
	Succeeded           int
	Failed              int
	SuccessRate         float64
	ExecutionTimeMS     int64
	ConcurrentExecution bool
}

// Engine runs Operations against a Network handle with bounded
// concurrency.
type Engine struct {
	net         network.API
	concurrency int64
	metrics     *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = int64(n) }
}

// New builds an Engine bound to net.
func New(net network.API, opts ...Option) *Engine {
	e := &Engine{net: net, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes every operation, each gated by the Engine's concurrency
// semaphore, and returns results in the same order as ops. A duplicate
// ID across ops is rejected before any operation dispatches. An empty
// ops list returns an empty result set with a 100% success rate.
func (e *Engine) Run(ctx context.Context, ops []Operation) ([]Result, Stats, error) {
	ops = assignMissingIDs(ops)
	if err := checkDuplicateIDs(ops); err != nil {
		return nil, Stats{}, err
	}

	start := time.Now()
	results := make([]Result, len(ops))

	if len(ops) == 0 {
		return results, Stats{SuccessRate: 100, ExecutionTimeMS: 0, ConcurrentExecution: true}, nil
	}

	sem := semaphore.NewWeighted(e.concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i, op := range ops {
		i, op := i, op
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				results[i] = Result{ID: op.ID, Err: err}
				return nil
			}
			defer sem.Release(1)

			opStart := time.Now()
			results[i] = e.execute(gctx, op)
			results[i].DurationMS = time.Since(opStart).Milliseconds()
			return nil
		})
	}
	// errgroup.Wait's error is always nil here: execute captures every
	// per-operation failure into its Result rather than propagating it,
	// so one operation's failure never cancels its siblings.
	_ = g.Wait()

	elapsed := time.Since(start)
	e.metrics.observe(ops, results, elapsed.Seconds())
	stats := computeStats(results, elapsed)
	return results, stats, nil
}

func (e *Engine) execute(ctx context.Context, op Operation) Result {
	if err := validateOperation(op); err != nil {
		return Result{ID: op.ID, Err: err}
	}

	switch op.Kind {
	case KindSubmit:
		res, err := e.net.SubmitTransaction(ctx, op.Envelope)
		if err != nil {
			return Result{ID: op.ID, Err: err}
		}
		return Result{ID: op.ID, SubmitResult: &res}
	case KindBalance:
		bal, err := e.net.Balance(ctx, op.Address)
		if err != nil {
			return Result{ID: op.ID, Err: err}
		}
		return Result{ID: op.ID, Balance: &bal}
	case KindOrdinal:
		ord, err := e.net.Ordinal(ctx, op.Address)
		if err != nil {
			return Result{ID: op.ID, Err: err}
		}
		return Result{ID: op.ID, Ordinal: &ord}
	case KindTransactions:
		txns, err := e.net.Transactions(ctx, op.Address, op.Limit)
		if err != nil {
			return Result{ID: op.ID, Err: err}
		}
		return Result{ID: op.ID, Transactions: txns}
	case KindRecentTransactions:
		txns, err := e.net.RecentTransactions(ctx, op.Limit)
		if err != nil {
			return Result{ID: op.ID, Err: err}
		}
		return Result{ID: op.ID, Transactions: txns}
	case KindNodeInfo:
		info, err := e.net.NodeInfo(ctx)
		if err != nil {
			return Result{ID: op.ID, Err: err}
		}
		return Result{ID: op.ID, NodeInfo: &info}
	case KindClusterInfo:
		info, err := e.net.ClusterInfo(ctx)
		if err != nil {
			return Result{ID: op.ID, Err: err}
		}
		return Result{ID: op.ID, ClusterInfo: &info}
	default:
		return Result{ID: op.ID, Err: errs.New(errs.KindValidationError, fmt.Sprintf("unknown operation kind %q", op.Kind))}
	}
}

// validateOperation checks an operation's params before any network call
// is attempted, so a malformed address or envelope never leaves the
// process. It returns an errs.KindValidationError-tagged error naming
// the offending field.
func validateOperation(op Operation) error {
	switch op.Kind {
	case KindSubmit:
		if err := txn.ValidateSigned(op.Envelope); err != nil {
			return err
		}
	case KindBalance, KindOrdinal, KindTransactions:
		if err := validate.Address(op.Address); err != nil {
			return errs.New(errs.KindValidationError, err.Error()).WithDetails(errs.Field(err.Field))
		}
	case KindRecentTransactions, KindNodeInfo, KindClusterInfo:
		// no address/envelope params to validate
	}
	if (op.Kind == KindTransactions || op.Kind == KindRecentTransactions) && op.Limit < 0 {
		return errs.New(errs.KindValidationError, fmt.Sprintf("limit %d must not be negative", op.Limit)).
			WithDetails(errs.Field("limit"))
	}
	return nil
}

// assignMissingIDs fills in a random UUID for any operation whose caller
// left ID empty, without mutating the caller's slice.
func assignMissingIDs(ops []Operation) []Operation {
	hasEmpty := false
	for _, op := range ops {
		if op.ID == "" {
			hasEmpty = true
			break
		}
	}
	if !hasEmpty {
		return ops
	}
	out := make([]Operation, len(ops))
	copy(out, ops)
	for i, op := range out {
		if op.ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}

func checkDuplicateIDs(ops []Operation) error {
	seen := make(map[string]struct{}, len(ops))
	for _, op := range ops {
		if _, ok := seen[op.ID]; ok {
			return errs.New(errs.KindValidationError, fmt.Sprintf("duplicate operation id %q", op.ID)).
				WithDetails(errs.Field("id"))
		}
		seen[op.ID] = struct{}{}
	}
	return nil
}

func computeStats(results []Result, elapsed time.Duration) Stats {
	stats := Stats{Total: len(results), ExecutionTimeMS: elapsed.Milliseconds(), ConcurrentExecution: true}
	for _, r := range results {
		if r.Err == nil {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total) * 100
	} else {
		stats.SuccessRate = 100
	}
	return stats
}
