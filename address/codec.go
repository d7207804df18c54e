// Package address provides canonical serialization and hashing of a
// transaction's value object, and address derivation from a public key.
package address

import (
	"bytes"
	"crypto/sha512"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParentRef names the previous transaction in a source's chain. The
// canonical genesis reference is the zero value with Hash set to 64
// zero characters.
type ParentRef struct {
	Hash    string
	Ordinal uint64
}

// GenesisHash is the all-zero parent hash used by the first transaction
// from any address (64 hex zero characters).
var GenesisHash = strings.Repeat("0", 64)

// Genesis is the canonical parent reference for a source's first
// transaction.
var Genesis = ParentRef{Hash: GenesisHash, Ordinal: 0}

// Value is the signable body of a transaction envelope. Exactly one of
// Amount/Destination (token transfer) or Data/Timestamp (data
// submission) applies; Destination defaults to Source for data
// submissions per the factory's canonical choice (see DESIGN.md).
type Value struct {
	Source      string
	Destination string
	Amount      *uint64
	Fee         uint64
	Salt        uint64
	Parent      ParentRef
	MetagraphID string

	Data      map[string]interface{}
	Timestamp *int64
}

// IsDataSubmission reports whether this value carries a data payload
// rather than an amount.
func (v Value) IsDataSubmission() bool { return v.Data != nil || v.Timestamp != nil }

// CanonicalBytes serializes v using a fixed field order: source,
// destination, amount, fee, salt, parent.hash, parent.ordinal,
// metagraph_id (if present), data, timestamp (for data
// submissions). No whitespace; integers as plain decimal; strings as
// UTF-8 with standard JSON escapes; data's nested object is encoded
// recursively with sorted keys so the hash is insensitive to the input
// representation's field order.
func (v Value) CanonicalBytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeKey := func(first bool, key string) {
		if !first {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, key)
		buf.WriteByte(':')
	}

	first := true
	writeField := func(key string) { writeKey(first, key); first = false }

	writeField("source")
	writeJSONString(&buf, v.Source)

	writeField("destination")
	writeJSONString(&buf, v.Destination)

	if v.Amount != nil {
		writeField("amount")
		buf.WriteString(strconv.FormatUint(*v.Amount, 10))
	}

	writeField("fee")
	buf.WriteString(strconv.FormatUint(v.Fee, 10))

	writeField("salt")
	buf.WriteString(strconv.FormatUint(v.Salt, 10))

	writeField("parent")
	buf.WriteByte('{')
	writeJSONString(&buf, "hash")
	buf.WriteByte(':')
	writeJSONString(&buf, v.Parent.Hash)
	buf.WriteByte(',')
	writeJSONString(&buf, "ordinal")
	buf.WriteByte(':')
	buf.WriteString(strconv.FormatUint(v.Parent.Ordinal, 10))
	buf.WriteByte('}')

	if v.MetagraphID != "" {
		writeField("metagraph_id")
		writeJSONString(&buf, v.MetagraphID)
	}

	if v.Data != nil {
		writeField("data")
		encoded, err := canonicalJSON(v.Data)
		if err != nil {
			return nil, fmt.Errorf("address: canonicalize data: %w", err)
		}
		buf.Write(encoded)
	}

	if v.Timestamp != nil {
		writeField("timestamp")
		buf.WriteString(strconv.FormatInt(*v.Timestamp, 10))
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CanonicalHash computes the 32-byte canonical hash of v: SHA-512/256
// (the true truncated-IV variant, not a naive SHA-512 prefix) over
// CanonicalBytes.
func (v Value) CanonicalHash() ([32]byte, error) {
	b, err := v.CanonicalBytes()
	if err != nil {
		return [32]byte{}, err
	}
	return sha512.Sum512_256(b), nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	// encoding/json already produces standard escapes for UTF-8 strings;
	// reuse it rather than hand-rolling escaping rules.
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// canonicalJSON recursively encodes an arbitrary JSON-shaped value with
// object keys sorted lexicographically and no whitespace, so two logically
// equal data payloads always hash identically regardless of input key
// order.
func canonicalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeJSONString(buf, val)
	case json.Number:
		buf.WriteString(string(val))
	case float64:
		buf.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("address: unsupported data value type %T", v)
	}
	return nil
}
