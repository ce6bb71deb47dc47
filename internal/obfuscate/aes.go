package obfuscate

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// AESCodec is AES-CBC with a random IV per call and PKCS#7 padding.
// Output format: hex(iv) + ":" + hex(ciphertext).
type AESCodec struct {
	block cipher.Block
	rand  io.Reader
}

// NewAESCodec accepts 16, 24 or 32 byte keys.
func NewAESCodec(key []byte) (*AESCodec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes codec: %w", err)
	}
	return &AESCodec{block: block, rand: rand.Reader}, nil
}

func (*AESCodec) Name() string { return VariantAES }

func (c *AESCodec) Encode(text string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("aes codec: read iv: %w", err)
	}
	plain := pad([]byte(text), aes.BlockSize)
	ct := make([]byte, len(plain))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ct, plain)
	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ct), nil
}

func (c *AESCodec) Decode(blob string) (string, error) {
	parts := strings.Split(strings.TrimSpace(blob), ":")
	if len(parts) != 2 {
		return "", c.fail(fmt.Sprintf("want 2 ':'-separated segments, got %d", len(parts)), nil)
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", c.fail("malformed iv hex", err)
	}
	if len(iv) != aes.BlockSize {
		return "", c.fail(fmt.Sprintf("iv must be %d bytes, got %d", aes.BlockSize, len(iv)), nil)
	}
	ct, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", c.fail("malformed ciphertext hex", err)
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", c.fail("ciphertext is not a whole number of blocks", nil)
	}
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, ct)
	out, ok := unpad(plain, aes.BlockSize)
	if !ok {
		return "", c.fail("bad padding (wrong key or corrupted data)", nil)
	}
	if !utf8.Valid(out) {
		return "", c.fail("plaintext is not valid UTF-8 (wrong key or corrupted data)", nil)
	}
	return string(out), nil
}

func (c *AESCodec) fail(reason string, err error) *DecodeError {
	return &DecodeError{Variant: VariantAES, Reason: reason, Err: err}
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append([]byte{}, b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, false
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
