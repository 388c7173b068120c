package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	encrypted, err := Encrypt("client@example.com +62 811 0000", "test-key")
	require.NoError(t, err)
	assert.NotEqual(t, "client@example.com +62 811 0000", encrypted)

	decrypted, err := Decrypt(encrypted, "test-key")
	require.NoError(t, err)
	assert.Equal(t, "client@example.com +62 811 0000", decrypted)
}

func TestEncryptProducesDifferentCiphertexts(t *testing.T) {
	// random IV per call
	a, err := Encrypt("same input", "test-key")
	require.NoError(t, err)
	b, err := Encrypt("same input", "test-key")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptWithWrongKey(t *testing.T) {
	encrypted, err := Encrypt("secret data", "right-key")
	require.NoError(t, err)

	decrypted, err := Decrypt(encrypted, "wrong-key")
	require.NoError(t, err)
	assert.NotEqual(t, "secret data", decrypted)
}

func TestDecryptShortCiphertext(t *testing.T) {
	_, err := Decrypt("dG9vc2hvcnQ=", "test-key")
	assert.Error(t, err)
}

func TestFixEncryptionKey(t *testing.T) {
	assert.Len(t, FixEncryptionKey("short"), 32)
	assert.Len(t, FixEncryptionKey("exactly-32-bytes-long-key-000000"), 32)
	long := FixEncryptionKey("this key is much longer than thirty-two bytes in total")
	assert.Len(t, long, 32)
}
