package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestEncryptor_RoundTrip(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	require.NoError(t, err)

	plaintext := `{"reading_id":"r-1","value":55,"unit":"mg/dL"}`

	ciphertext, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptor_InvalidKeySize(t *testing.T) {
	_, err := NewEncryptor([]byte("too-short"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestEncryptor_TamperedCiphertext(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	require.NoError(t, err)

	data, err := enc.EncryptBytes([]byte("sensitive"))
	require.NoError(t, err)

	// 篡改密文最后一个字节
	data[len(data)-1] ^= 0xFF

	_, err = enc.DecryptBytes(data)
	assert.Error(t, err)
}

func TestEncryptor_CiphertextTooShort(t *testing.T) {
	enc, err := NewEncryptor(testKey())
	require.NoError(t, err)

	_, err = enc.DecryptBytes([]byte{0x01, 0x02})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}
