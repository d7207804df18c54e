package account

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/constellation-network/sdk-go/address"
	"github.com/constellation-network/sdk-go/pkg/errs"
)

// Sign produces a deterministic (RFC 6979) low-S DER ECDSA signature
// over SHA-256(message).
func (a *Account) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	sig := ecdsa.Sign(a.priv, digest[:])
	return sig.Serialize(), nil
}

// SignTransaction computes the canonical hash of env.Value, signs it,
// and returns a new envelope with a proof appended — env itself is left
// unmodified.
func (a *Account) SignTransaction(env address.Envelope) (address.Envelope, error) {
	hash, err := env.Value.CanonicalHash()
	if err != nil {
		return address.Envelope{}, errs.Wrap(errs.KindSigningFailed, "compute canonical hash", err)
	}

	sig := ecdsa.Sign(a.priv, hash[:])

	out := env.Clone()
	out.Proofs = append(out.Proofs, address.Proof{
		ID:        a.PublicKeyHex(),
		Signature: sig.Serialize(),
	})
	return out, nil
}

// VerifyTransaction checks that every proof in env is a valid signature
// over env.Value's canonical hash, and that at least one proof's
// derived address equals env.Value.Source.
func VerifyTransaction(env address.Envelope) (bool, error) {
	if len(env.Proofs) == 0 {
		return false, errs.New(errs.KindValidationError, "envelope has no proofs")
	}
	hash, err := env.Value.CanonicalHash()
	if err != nil {
		return false, err
	}

	sourceMatched := false
	for _, p := range env.Proofs {
		ok, err := Verify(p.ID, hash, p.Signature)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		addr, err := AddressFromPublicKeyHex(p.ID)
		if err != nil {
			return false, err
		}
		if string(addr) == env.Value.Source {
			sourceMatched = true
		}
	}
	return sourceMatched, nil
}
