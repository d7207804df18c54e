package address

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/mr-tron/base58"
)

// Prefix every valid address string begins with.
const Prefix = "DAG"

// Length is the fixed total length of an address string: "DAG" + 1
// check digit + 36 base58 tail characters.
const Length = 40

// tailLength is the number of base58 characters kept from the encoded
// public-key hash.
const tailLength = 36

var addressPattern = regexp.MustCompile(`^DAG[0-9][1-9A-HJ-NP-Za-km-z]{36}$`)

// Address is an opaque, immutable identifier over the Network. Equality
// is the zero-cost Go string comparison, which is exact and
// case-sensitive.
type Address string

// String returns the address in its canonical wire form.
func (a Address) String() string { return string(a) }

// secp256k1 uncompressed-point SubjectPublicKeyInfo DER prefix (ASN.1
// SEQUENCE{ SEQUENCE{ OID id-ecPublicKey, OID secp256k1 }, BIT STRING }),
// fixed for every key because the curve OID never varies. The 65-byte
// uncompressed point (0x04||X||Y) is appended after it.
var secp256k1SPKIPrefix = []byte{
	0x30, 0x56, 0x30, 0x10, 0x06, 0x07, 0x2a, 0x86, 0x48, 0xce, 0x3d, 0x02, 0x01,
	0x06, 0x05, 0x2b, 0x81, 0x04, 0x00, 0x0a, 0x03, 0x42, 0x00,
}

// derEncodeUncompressedPubKey wraps a 65-byte uncompressed secp256k1
// public key (0x04||X||Y) in the fixed SubjectPublicKeyInfo DER prefix.
func derEncodeUncompressedPubKey(uncompressed []byte) ([]byte, error) {
	if len(uncompressed) != 65 || uncompressed[0] != 0x04 {
		return nil, fmt.Errorf("address: expected 65-byte uncompressed public key, got %d bytes", len(uncompressed))
	}
	out := make([]byte, 0, len(secp256k1SPKIPrefix)+len(uncompressed))
	out = append(out, secp256k1SPKIPrefix...)
	out = append(out, uncompressed...)
	return out, nil
}

// FromUncompressedPublicKey derives the Network address for a 65-byte
// uncompressed secp256k1 public key: SHA-256 of its DER encoding,
// base58-encode, keep the last 36 characters, and prepend "DAG<digit>"
// where digit is the mod-9 checksum of that tail's decimal digits.
func FromUncompressedPublicKey(uncompressed []byte) (Address, error) {
	der, err := derEncodeUncompressedPubKey(uncompressed)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(der)
	encoded := base58.Encode(sum[:])
	if len(encoded) < tailLength {
		return "", fmt.Errorf("address: base58 encoding shorter than %d characters", tailLength)
	}
	tail := encoded[len(encoded)-tailLength:]
	digit := checkDigit(tail)
	return Address(fmt.Sprintf("%s%d%s", Prefix, digit, tail)), nil
}

// checkDigit sums the decimal digits appearing in s and reduces mod 9.
func checkDigit(s string) int {
	sum := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sum += int(r - '0')
		}
	}
	return sum % 9
}

// Valid reports whether a is well-formed: fixed prefix, correct length,
// a check digit matching the mod-9 rule over the tail, and a base58-
// decodable tail.
func (a Address) Valid() bool {
	s := string(a)
	if len(s) != Length {
		return false
	}
	if !addressPattern.MatchString(s) {
		return false
	}
	tail := s[4:]
	declared := int(s[3] - '0')
	if checkDigit(tail) != declared {
		return false
	}
	if _, err := base58.Decode(tail); err != nil {
		return false
	}
	return true
}

// HasPrefix is a cheap pre-check used before the full Valid() pass.
func (a Address) HasPrefix() bool { return strings.HasPrefix(string(a), Prefix) }
