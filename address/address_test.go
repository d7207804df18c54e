package address

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromUncompressedPublicKeyDeterministic(t *testing.T) {
	pub := make([]byte, 65)
	pub[0] = 0x04
	for i := 1; i < 65; i++ {
		pub[i] = byte(i)
	}

	addr1, err := FromUncompressedPublicKey(pub)
	require.NoError(t, err)
	addr2, err := FromUncompressedPublicKey(pub)
	require.NoError(t, err)
	require.Equal(t, addr1, addr2)
	require.True(t, addr1.Valid())
	require.True(t, addr1.HasPrefix())
	require.Len(t, string(addr1), Length)
}

func TestFromUncompressedPublicKeyRejectsBadShape(t *testing.T) {
	_, err := FromUncompressedPublicKey([]byte{0x04, 0x01})
	require.Error(t, err)

	compressed := make([]byte, 65)
	compressed[0] = 0x02
	_, err = FromUncompressedPublicKey(compressed)
	require.Error(t, err)
}

func TestAddressValid(t *testing.T) {
	pub := make([]byte, 65)
	pub[0] = 0x04
	for i := 1; i < 65; i++ {
		pub[i] = byte(i * 7)
	}
	addr, err := FromUncompressedPublicKey(pub)
	require.NoError(t, err)
	require.True(t, addr.Valid())

	// A '9' would leave the mod-9 digit sum unchanged; '1' shifts it by one.
	tampered := Address(string(addr)[:len(addr)-1] + "1")
	require.False(t, tampered.Valid())

	require.False(t, Address("DAG0tooshort").Valid())
	require.False(t, Address("XYZ"+string(addr)[3:]).Valid())
}

func TestCheckDigitIsModNineOfDigitsOnly(t *testing.T) {
	require.Equal(t, 0, checkDigit("abc"))
	require.Equal(t, 6, checkDigit("a1b2b3"))
	require.Equal(t, (9+1+8)%9, checkDigit("9a1b8"))
}
