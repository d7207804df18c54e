package address

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// DEREncodeSignature re-serializes an (r, s) pair already produced by
// ecdsa.Sign into strict low-S DER bytes. decred's Signature.Serialize
// already enforces canonical (low-S) form, so this is a thin pass-through
// kept as its own named operation for symmetry with ParseDERSignature.
func DEREncodeSignature(sig *ecdsa.Signature) []byte {
	return sig.Serialize()
}

// ParseDERSignature parses DER signature bytes via decred's
// ecdsa.ParseDERSignature. It does not itself check that S is in low-S
// form.
func ParseDERSignature(der []byte) (*ecdsa.Signature, error) {
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return nil, fmt.Errorf("address: parse DER signature: %w", err)
	}
	return sig, nil
}
