// Package account provides secp256k1 key management and
// transaction/message signing. An Account exclusively owns its secret
// scalar; it never persists it.
package account

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/constellation-network/sdk-go/address"
	"github.com/constellation-network/sdk-go/pkg/errs"
)

// Account owns a secp256k1 secret scalar and exposes the Network
// address derived from its public key. The zero value is not valid;
// construct via New or FromSecret.
type Account struct {
	priv *secp256k1.PrivateKey
	addr address.Address
}

// New draws 32 bytes of cryptographically secure randomness and derives
// an Account from it, rejecting draws that land outside the valid
// scalar range (effectively never, given the curve order's size, but
// checked anyway).
func New() (*Account, error) {
	for {
		var buf [32]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, errs.Wrap(errs.KindInvalidKey, "read randomness", err)
		}
		acct, err := fromSecretBytes(buf[:])
		if err == nil {
			return acct, nil
		}
		if !isOutOfRange(err) {
			return nil, err
		}
		// Extraordinarily unlikely (probability ~2^-128): redraw.
	}
}

// FromSecret imports an account from a 64-hex-character secret scalar.
func FromSecret(hexSecret string) (*Account, error) {
	if len(hexSecret) != 64 {
		return nil, errs.New(errs.KindInvalidKey, fmt.Sprintf("secret must be 64 hex characters, got %d", len(hexSecret)))
	}
	raw, err := hex.DecodeString(hexSecret)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidKey, "decode secret hex", err)
	}
	return fromSecretBytes(raw)
}

type outOfRangeError struct{ reason string }

func (e *outOfRangeError) Error() string { return e.reason }

func isOutOfRange(err error) bool {
	if sdkErr, ok := err.(*errs.Error); ok && sdkErr.Cause != nil {
		_, ok = sdkErr.Cause.(*outOfRangeError)
		return ok
	}
	_, ok := err.(*outOfRangeError)
	return ok
}

func fromSecretBytes(raw []byte) (*Account, error) {
	if len(raw) != 32 {
		return nil, errs.New(errs.KindInvalidKey, "secret must be 32 bytes")
	}
	var scalar secp256k1.ModNScalar
	overflow := scalar.SetByteSlice(raw)
	if overflow {
		return nil, errs.Wrap(errs.KindInvalidKey, "secret out of curve range", &outOfRangeError{"scalar overflow"})
	}
	if scalar.IsZero() {
		return nil, errs.Wrap(errs.KindInvalidKey, "secret must be non-zero", &outOfRangeError{"zero scalar"})
	}

	priv := secp256k1.NewPrivateKey(&scalar)
	pub := priv.PubKey()
	addr, err := address.FromUncompressedPublicKey(pub.SerializeUncompressed())
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidKey, "derive address", err)
	}
	return &Account{priv: priv, addr: addr}, nil
}

// Address returns the account's Network address. Safe to share.
func (a *Account) Address() address.Address { return a.addr }

// PublicKeyHex returns the 128-hex-character uncompressed public key
// (the 65-byte point minus its leading 0x04 byte), the form the
// Network's proofs use for a proof's "id" field.
func (a *Account) PublicKeyHex() string {
	full := a.priv.PubKey().SerializeUncompressed()
	return hex.EncodeToString(full[1:])
}

// SecretHex exposes the 64-hex-character secret scalar. Callers that
// call this are responsible for its secure disposal; the SDK never
// persists it.
func (a *Account) SecretHex() string {
	b := a.priv.Serialize()
	return hex.EncodeToString(b)
}

// pubKey returns the account's public key for verification use.
func (a *Account) pubKey() *secp256k1.PublicKey { return a.priv.PubKey() }

// Verify checks that derSig is a valid DER ECDSA signature over hash by
// pubKeyHex (128 hex characters, uncompressed point minus the 0x04
// prefix). The S value is not checked for low-S form.
func Verify(pubKeyHex string, hash [32]byte, derSig []byte) (bool, error) {
	pub, err := parsePublicKeyHex(pubKeyHex)
	if err != nil {
		return false, err
	}
	sig, err := ecdsa.ParseDERSignature(derSig)
	if err != nil {
		return false, errs.Wrap(errs.KindInvalidResponse, "parse signature", err)
	}
	return sig.Verify(hash[:], pub), nil
}

func parsePublicKeyHex(pubKeyHex string) (*secp256k1.PublicKey, error) {
	if len(pubKeyHex) != 128 {
		return nil, errs.New(errs.KindValidationError, fmt.Sprintf("public key must be 128 hex characters, got %d", len(pubKeyHex)))
	}
	raw, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidationError, "decode public key hex", err)
	}
	full := append([]byte{0x04}, raw...)
	pub, err := secp256k1.ParsePubKey(full)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidationError, "parse public key", err)
	}
	return pub, nil
}

// AddressFromPublicKeyHex derives the address matching a 128-hex-char
// uncompressed public key, used to check proofs[0].id against a value's
// source.
func AddressFromPublicKeyHex(pubKeyHex string) (address.Address, error) {
	pub, err := parsePublicKeyHex(pubKeyHex)
	if err != nil {
		return "", err
	}
	return address.FromUncompressedPublicKey(pub.SerializeUncompressed())
}
