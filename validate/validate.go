// Package validate provides pure, stateless predicates over addresses,
// amounts, metagraph ids, data payloads, and envelope structure. Every
// factory and simulator entry point runs these before doing anything
// else.
package validate

import (
	"encoding/json"
	"fmt"

	"github.com/constellation-network/sdk-go/account"
	"github.com/constellation-network/sdk-go/address"
)

// MaxAmount is the exclusive upper bound for a valid Amount: 2^63.
const MaxAmount uint64 = 1 << 63

// MaxDataPayloadBytes is the maximum canonical-JSON size of a data
// submission's payload: 64 KiB.
const MaxDataPayloadBytes = 64 * 1024

// Error is a structured validation failure naming the offending field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

func fail(field, reason string) *Error { return &Error{Field: field, Reason: reason} }

// Address validates an address string's syntax and check-digit rules.
func Address(s string) *Error {
	a := address.Address(s)
	if !a.Valid() {
		return fail("address", fmt.Sprintf("%q is not a well-formed Network address", s))
	}
	return nil
}

// MetagraphID validates a metagraph id using the same rules as Address.
func MetagraphID(s string) *Error {
	if err := Address(s); err != nil {
		return fail("metagraph_id", err.Reason)
	}
	return nil
}

// Amount validates that a is in [0, 2^63).
func Amount(a uint64) *Error {
	if a >= MaxAmount {
		return fail("amount", fmt.Sprintf("%d is not less than 2^63", a))
	}
	return nil
}

// NonZeroAmount additionally rejects a == 0, for operations (token
// transfers) where a zero amount is structurally valid but semantically
// rejected.
func NonZeroAmount(a uint64) *Error {
	if err := Amount(a); err != nil {
		return err
	}
	if a == 0 {
		return fail("amount", "token transfers must carry a non-zero amount")
	}
	return nil
}

// DataPayload validates a data submission payload: must be a map, no
// null at the root, all keys strings (guaranteed by Go's map[string]any
// shape), and canonical-JSON size at most 64 KiB.
func DataPayload(data map[string]interface{}) *Error {
	if data == nil {
		return fail("data", "payload must not be null")
	}
	// json.Marshal stands in for the canonical encoding's size. Key order
	// and string escaping match it; floating-point numbers can differ in
	// length, since the canonical encoder writes them in 'g' form
	// (1e+06 rather than 1000000).
	raw, err := json.Marshal(data)
	if err != nil {
		return fail("data", err.Error())
	}
	if len(raw) > MaxDataPayloadBytes {
		return fail("data", fmt.Sprintf("payload is %d bytes, exceeding the %d byte limit", len(raw), MaxDataPayloadBytes))
	}
	return nil
}

// Timestamp validates a millisecond Unix timestamp is non-negative.
func Timestamp(ms int64) *Error {
	if ms < 0 {
		return fail("timestamp", "timestamp must not be negative")
	}
	return nil
}

// EnvelopeStructure validates that env has the required shape: non-empty
// proofs, and at least one proof whose derived address equals the
// value's source. It does not re-verify signatures (account.VerifyTransaction
// does); it only checks structural well-formedness of ids.
func EnvelopeStructure(env address.Envelope) *Error {
	if env.Value.Source == "" {
		return fail("source", "source is required")
	}
	if err := Address(env.Value.Source); err != nil {
		return fail("source", err.Reason)
	}
	if len(env.Proofs) == 0 {
		return fail("proofs", "envelope must carry at least one proof")
	}
	matched := false
	for _, p := range env.Proofs {
		if len(p.ID) != 128 {
			return fail("proofs[].id", "proof id must be 128 hex characters")
		}
		derived, err := account.AddressFromPublicKeyHex(p.ID)
		if err != nil {
			return fail("proofs[].id", err.Error())
		}
		if string(derived) == env.Value.Source {
			matched = true
		}
	}
	if !matched {
		return fail("proofs", "no proof's derived address matches the envelope's source")
	}
	return nil
}
