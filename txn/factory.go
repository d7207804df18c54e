// Package txn is the single, stateless entry point for building all four
// transaction shapes. It performs no network I/O and never partially
// constructs an envelope — every input is validated before any field is
// set.
package txn

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/constellation-network/sdk-go/address"
	"github.com/constellation-network/sdk-go/pkg/errs"
	"github.com/constellation-network/sdk-go/validate"
)

// Clock abstracts "now" in milliseconds so tests can supply a fixed
// value instead of depending on wall-clock time.
type Clock func() int64

// RandomSalt draws a cryptographically secure salt uniformly from
// [0, 2^63).
func RandomSalt() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, errs.Wrap(errs.KindValidationError, "draw salt randomness", err)
	}
	salt := binary.BigEndian.Uint64(buf[:])
	return salt &^ (1 << 63), nil // clear the top bit to land in [0, 2^63)
}

func validationErr(e *validate.Error) error {
	return errs.New(errs.KindValidationError, e.Error()).WithDetails(map[string]any{"field": e.Field})
}

// TokenTransferParams are the inputs to BuildTokenTransfer. Fee defaults
// to 0; Salt, if nil, is drawn randomly — pass a non-nil pointer
// (including one pointing at 0) to pin an exact salt; MetagraphID, if
// non-empty, marks this as a metagraph token transfer rather than a
// native one.
type TokenTransferParams struct {
	Source      string
	Destination string
	Amount      uint64
	Parent      address.ParentRef
	Fee         uint64
	Salt        *uint64
	MetagraphID string
}

// BuildTokenTransfer constructs an unsigned native- or metagraph-token
// transfer envelope. Self-transfer (Source == Destination) is permitted
// structurally; Amount == 0 is rejected.
func BuildTokenTransfer(p TokenTransferParams) (address.Envelope, error) {
	if err := validate.Address(p.Source); err != nil {
		return address.Envelope{}, validationErr(err)
	}
	if err := validate.Address(p.Destination); err != nil {
		return address.Envelope{}, validationErr(err)
	}
	if err := validate.NonZeroAmount(p.Amount); err != nil {
		return address.Envelope{}, validationErr(err)
	}
	if err := validate.Amount(p.Fee); err != nil {
		return address.Envelope{}, validationErr(err)
	}
	if p.MetagraphID != "" {
		if err := validate.MetagraphID(p.MetagraphID); err != nil {
			return address.Envelope{}, validationErr(err)
		}
	}

	salt, err := resolveSalt(p.Salt)
	if err != nil {
		return address.Envelope{}, err
	}

	amount := p.Amount
	return address.Envelope{
		Value: address.Value{
			Source:      p.Source,
			Destination: p.Destination,
			Amount:      &amount,
			Fee:         p.Fee,
			Salt:        salt,
			Parent:      p.Parent,
			MetagraphID: p.MetagraphID,
		},
	}, nil
}

// DataSubmissionParams are the inputs to BuildDataSubmission.
// Destination defaults to Source (the canonical shape this SDK picked
// for the source's "destination sometimes omitted" open question — see
// DESIGN.md); Timestamp defaults to now, in milliseconds; Salt, if nil,
// is drawn randomly — pass a non-nil pointer (including one pointing at
// 0) to pin an exact salt.
type DataSubmissionParams struct {
	Source      string
	Data        map[string]interface{}
	MetagraphID string
	Parent      address.ParentRef
	Destination string
	Timestamp   int64
	Fee         uint64
	Salt        *uint64
	Now         Clock
}

// BuildDataSubmission constructs an unsigned data-submission envelope.
// Data submissions carry no amount; a metagraph id is mandatory.
func BuildDataSubmission(p DataSubmissionParams) (address.Envelope, error) {
	if err := validate.Address(p.Source); err != nil {
		return address.Envelope{}, validationErr(err)
	}
	if p.MetagraphID == "" {
		return address.Envelope{}, errs.New(errs.KindValidationError, "data submissions require a metagraph_id").
			WithDetails(errs.Field("metagraph_id"))
	}
	if err := validate.MetagraphID(p.MetagraphID); err != nil {
		return address.Envelope{}, validationErr(err)
	}
	if err := validate.DataPayload(p.Data); err != nil {
		return address.Envelope{}, validationErr(err)
	}
	if err := validate.Amount(p.Fee); err != nil {
		return address.Envelope{}, validationErr(err)
	}

	destination := p.Destination
	if destination == "" {
		destination = p.Source
	} else if err := validate.Address(destination); err != nil {
		return address.Envelope{}, validationErr(err)
	}

	timestamp := p.Timestamp
	if timestamp == 0 {
		now := p.Now
		if now == nil {
			now = defaultClock
		}
		timestamp = now()
	}
	if err := validate.Timestamp(timestamp); err != nil {
		return address.Envelope{}, validationErr(err)
	}

	salt, err := resolveSalt(p.Salt)
	if err != nil {
		return address.Envelope{}, err
	}

	return address.Envelope{
		Value: address.Value{
			Source:      p.Source,
			Destination: destination,
			Fee:         p.Fee,
			Salt:        salt,
			Parent:      p.Parent,
			MetagraphID: p.MetagraphID,
			Data:        p.Data,
			Timestamp:   &timestamp,
		},
	}, nil
}

// BatchTransfer is one leg of a chained batch build.
type BatchTransfer struct {
	Destination string
	Amount      uint64
	Fee         uint64
	MetagraphID string
}

// BuildBatch produces an ordered list of independently-signable token
// transfer envelopes whose parent references chain: the first
// references sharedParent; each subsequent one references the hash and
// ordinal of the envelope built immediately before it. Reordering the
// returned slice before signing/submitting breaks the chain — that
// responsibility stays with the caller.
func BuildBatch(source string, transfers []BatchTransfer, sharedParent address.ParentRef) ([]address.Envelope, error) {
	out := make([]address.Envelope, 0, len(transfers))
	parent := sharedParent
	for i, t := range transfers {
		env, err := BuildTokenTransfer(TokenTransferParams{
			Source:      source,
			Destination: t.Destination,
			Amount:      t.Amount,
			Fee:         t.Fee,
			Parent:      parent,
			MetagraphID: t.MetagraphID,
		})
		if err != nil {
			return nil, fmt.Errorf("txn: build batch leg %d: %w", i, err)
		}
		out = append(out, env)

		hash, err := env.Value.CanonicalHash()
		if err != nil {
			return nil, fmt.Errorf("txn: hash batch leg %d: %w", i, err)
		}
		parent = address.ParentRef{
			Hash:    hexEncode(hash),
			Ordinal: parent.Ordinal + 1,
		}
	}
	return out, nil
}

// ValidateSigned confirms a signed envelope is structurally ready for
// submission: it must carry at least one proof whose derived address
// matches Value.Source. Callers sign with account.SignTransaction and
// run this before handing the envelope to the Network API or Batch
// Engine.
func ValidateSigned(env address.Envelope) error {
	if err := validate.EnvelopeStructure(env); err != nil {
		return validationErr(err)
	}
	return nil
}

func resolveSalt(salt *uint64) (uint64, error) {
	if salt != nil {
		return *salt, nil
	}
	return RandomSalt()
}

func defaultClock() int64 { return nowMillis() }
