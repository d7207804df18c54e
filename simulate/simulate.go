// Package simulate is a pre-flight engine that validates a transaction
// offline and, given a Network handle, checks balance sufficiency and
// parent-reference freshness without submitting.
package simulate

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/constellation-network/sdk-go/address"
	"github.com/constellation-network/sdk-go/network"
	"github.com/constellation-network/sdk-go/pkg/errs"
	"github.com/constellation-network/sdk-go/validate"
)

// unsignedDERSignaturePlaceholderBytes is the assumed size of a DER
// signature when estimating an unsigned envelope's wire size.
const unsignedDERSignaturePlaceholderBytes = 72

// EnvironmentalError is a structured failure discovered only with a
// Network handle (insufficient balance, a stale parent reference).
type EnvironmentalError struct {
	Kind    errs.Kind
	Message string
}

func (e EnvironmentalError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// Confidence qualifies how much the report's will_succeed verdict can be
// trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Report is the Simulator's output. BalanceBefore/BalanceAfter are nil
// ("unknown") when no Network handle was supplied; ParentReferenceFresh
// is nil likewise.
type Report struct {
	WillSucceed          bool
	ValidationErrors     []*validate.Error
	EnvironmentalErrors  []EnvironmentalError
	EstimatedSizeBytes   int
	BalanceBefore        *uint64
	BalanceAfter         *int64
	ParentReferenceFresh *bool
	Confidence           Confidence
}

// cacheKey identifies a (deployment, source) pair for the balance/ordinal
// TTL cache.
type cacheKey struct {
	deployment string
	source     string
}

type cacheEntry struct {
	balance network.Balance
	ordinal uint64
}

// Simulator runs offline structural validation plus, optionally, online
// balance/freshness checks against a Network handle. Its balance/ordinal
// lookups are cached for a short TTL
// (default 5s) keyed by (deployment, source) so repeated simulations
// inside one batch don't refetch redundantly.
type Simulator struct {
	cache *lru.LRU[cacheKey, cacheEntry]
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithCacheTTL overrides the default 5s balance/ordinal cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Simulator) {
		s.cache = lru.NewLRU[cacheKey, cacheEntry](256, nil, ttl)
	}
}

// New builds a Simulator with a 5-second balance/ordinal cache.
func New(opts ...Option) *Simulator {
	s := &Simulator{cache: lru.NewLRU[cacheKey, cacheEntry](256, nil, 5*time.Second)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Options tune a single Simulate call.
type Options struct {
	// Deployment names the (deployment, source) cache partition; required
	// whenever Net is non-nil so two deployments never share cached
	// balances for the same address.
	Deployment string
	// Net, if non-nil, enables the environmental checks (balance,
	// ordinal freshness) and raises confidence to "high" when they pass.
	Net network.API
	// Detailed requests the size/confidence breakdown; both are always
	// computed, so this only affects whether a caller opts into reading
	// them rather than changing behavior.
	Detailed bool
}

// Simulate runs the full check pipeline against env without signing or
// submitting it, and without mutating env.
func (s *Simulator) Simulate(ctx context.Context, env address.Envelope, opts Options) (Report, error) {
	report := Report{}

	if err := validate.Address(env.Value.Source); err != nil {
		report.ValidationErrors = append(report.ValidationErrors, err)
	}
	if env.Value.Destination != "" {
		if err := validate.Address(env.Value.Destination); err != nil {
			report.ValidationErrors = append(report.ValidationErrors, err)
		}
	}
	if env.Value.Amount != nil {
		if err := validate.NonZeroAmount(*env.Value.Amount); err != nil {
			report.ValidationErrors = append(report.ValidationErrors, err)
		}
	}
	if env.Value.MetagraphID != "" {
		if err := validate.MetagraphID(env.Value.MetagraphID); err != nil {
			report.ValidationErrors = append(report.ValidationErrors, err)
		}
	}
	if env.Value.Data != nil {
		if err := validate.DataPayload(env.Value.Data); err != nil {
			report.ValidationErrors = append(report.ValidationErrors, err)
		}
	}
	if len(env.Proofs) > 0 {
		if err := validate.EnvelopeStructure(env); err != nil {
			report.ValidationErrors = append(report.ValidationErrors, err)
		}
	}

	size, err := s.estimateSize(env)
	if err != nil {
		return Report{}, err
	}
	report.EstimatedSizeBytes = size

	if opts.Net != nil {
		if err := s.checkEnvironment(ctx, env, opts, &report); err != nil {
			return Report{}, err
		}
	}

	balanceOK := report.BalanceAfter == nil || *report.BalanceAfter >= 0
	parentFresh := report.ParentReferenceFresh == nil || *report.ParentReferenceFresh
	report.WillSucceed = len(report.ValidationErrors) == 0 &&
		len(report.EnvironmentalErrors) == 0 &&
		balanceOK && parentFresh

	switch {
	case opts.Net != nil && report.WillSucceed:
		report.Confidence = ConfidenceHigh
	case opts.Net == nil && len(report.ValidationErrors) == 0:
		report.Confidence = ConfidenceMedium
	default:
		report.Confidence = ConfidenceLow
	}

	return report, nil
}

func (s *Simulator) checkEnvironment(ctx context.Context, env address.Envelope, opts Options, report *Report) error {
	key := cacheKey{deployment: opts.Deployment, source: env.Value.Source}
	entry, ok := s.cache.Get(key)
	if !ok {
		bal, err := opts.Net.Balance(ctx, env.Value.Source)
		if err != nil {
			return err
		}
		ordinal, err := opts.Net.Ordinal(ctx, env.Value.Source)
		if err != nil {
			return err
		}
		entry = cacheEntry{balance: bal, ordinal: ordinal}
		s.cache.Add(key, entry)
	}

	balanceBefore := entry.balance.Amount
	report.BalanceBefore = &balanceBefore

	var amount uint64
	if env.Value.Amount != nil {
		amount = *env.Value.Amount
	}
	after := int64(balanceBefore) - int64(amount) - int64(env.Value.Fee)
	report.BalanceAfter = &after
	if after < 0 {
		report.EnvironmentalErrors = append(report.EnvironmentalErrors, EnvironmentalError{
			Kind:    errs.KindInsufficientBalance,
			Message: fmt.Sprintf("balance %d insufficient for amount %d + fee %d", balanceBefore, amount, env.Value.Fee),
		})
	}

	fresh := env.Value.Parent.Ordinal >= entry.ordinal
	report.ParentReferenceFresh = &fresh
	if !fresh {
		report.EnvironmentalErrors = append(report.EnvironmentalErrors, EnvironmentalError{
			Kind:    errs.KindParentReferenceStale,
			Message: fmt.Sprintf("parent ordinal %d is behind current ordinal %d", env.Value.Parent.Ordinal, entry.ordinal),
		})
	}

	return nil
}

func (s *Simulator) estimateSize(env address.Envelope) (int, error) {
	canonical, err := env.Value.CanonicalBytes()
	if err != nil {
		return 0, err
	}
	size := len(canonical)
	if len(env.Proofs) == 0 {
		// One proof: 128 hex (64 bytes) id + placeholder DER signature.
		size += 64 + unsignedDERSignaturePlaceholderBytes
	} else {
		for _, p := range env.Proofs {
			size += len(p.ID)/2 + len(p.Signature)
		}
	}
	return size, nil
}
