package obfuscate_test

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/theraia/internal/obfuscate"
)

var samples = []string{
	"",
	"a",
	"hello world",
	"colons:in:the:middle:",
	":",
	"multi\nline\r\ntext\n",
	"Zoë 世界 🌙 é",
	"zzZZ99 wrap-around",
	"<!-- theraia-record v1 -->\n# Theraia Patient Record\n**Name:** Alex",
	strings.Repeat("sixteen-bytes!!!", 4),
}

func codecs(t *testing.T) []obfuscate.Codec {
	t.Helper()
	aesCodec, err := obfuscate.NewAESCodec([]byte(obfuscate.DevKey))
	require.NoError(t, err)
	return []obfuscate.Codec{obfuscate.RotationCodec{}, aesCodec}
}

func TestRoundTrip_AllVariants(t *testing.T) {
	for _, c := range codecs(t) {
		for _, s := range samples {
			enc, err := c.Encode(s)
			require.NoError(t, err, "%s encode %q", c.Name(), s)
			dec, err := c.Decode(enc)
			require.NoError(t, err, "%s decode %q", c.Name(), s)
			assert.Equal(t, s, dec, "%s round trip", c.Name())
		}
	}
}

func TestRotation_KnownVectors(t *testing.T) {
	c := obfuscate.RotationCodec{}
	cases := map[string]string{
		"abc":   "bcd",
		"xyz":   "yza",
		"XYZ":   "YZA",
		"089":   "190",
		"a:b\n": "b:c\n",
		"é!?":   "é!?",
	}
	for in, want := range cases {
		got, err := c.Encode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "encode %q", in)
	}
}

func TestRotation_PunctuationUntouched(t *testing.T) {
	c := obfuscate.RotationCodec{}
	in := ":\n\t -_=+[]{}()<>/\\|'\"`~!@#$%^&*"
	got, _ := c.Encode(in)
	assert.Equal(t, in, got)
}

var blobFormat = regexp.MustCompile(`^[0-9a-f]{32}:([0-9a-f]{32})+$`)

func TestAES_OutputFormatAndRandomIV(t *testing.T) {
	c, err := obfuscate.NewAESCodec([]byte(obfuscate.DevKey))
	require.NoError(t, err)

	a, err := c.Encode("same text")
	require.NoError(t, err)
	b, err := c.Encode("same text")
	require.NoError(t, err)

	assert.Regexp(t, blobFormat, a)
	assert.NotEqual(t, a, b, "IV must differ per call")
}

func TestAES_DecodeTrailingWhitespaceTolerated(t *testing.T) {
	c, err := obfuscate.NewAESCodec([]byte(obfuscate.DevKey))
	require.NoError(t, err)
	enc, err := c.Encode("record")
	require.NoError(t, err)
	dec, err := c.Decode(enc + "\n")
	require.NoError(t, err)
	assert.Equal(t, "record", dec)
}

func TestAES_MalformedInputIsDecodeError(t *testing.T) {
	c, err := obfuscate.NewAESCodec([]byte(obfuscate.DevKey))
	require.NoError(t, err)
	good, err := c.Encode("some record text")
	require.NoError(t, err)
	iv, ct, _ := strings.Cut(good, ":")

	cases := map[string]string{
		"empty":             "",
		"no separator":      iv + ct,
		"three segments":    iv + ":" + ct + ":" + ct,
		"bad iv hex":        "zz" + iv[2:] + ":" + ct,
		"short iv":          iv[:30] + ":" + ct,
		"bad ct hex":        iv + ":" + "zz" + ct[2:],
		"partial block":     iv + ":" + ct[:len(ct)-2],
		"empty ciphertext":  iv + ":",
		"rotation blob fed": "uif sfdpse",
	}
	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(blob)
			var de *obfuscate.DecodeError
			require.Error(t, err)
			assert.True(t, errors.As(err, &de), "want *DecodeError, got %T", err)
		})
	}
}

func TestAES_WrongKeyNeverYieldsPlaintext(t *testing.T) {
	enc1, err := obfuscate.NewAESCodec([]byte(obfuscate.DevKey))
	require.NoError(t, err)
	other, err := obfuscate.NewAESCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	const plain = "# Theraia Patient Record\n**Name:** Alex"
	for i := 0; i < 16; i++ {
		blob, err := enc1.Encode(plain)
		require.NoError(t, err)
		got, err := other.Decode(blob)
		if err != nil {
			var de *obfuscate.DecodeError
			require.ErrorAs(t, err, &de)
			continue
		}
		assert.NotEqual(t, plain, got)
	}
}

func TestNew_Variants(t *testing.T) {
	c, err := obfuscate.New("rotation", nil)
	require.NoError(t, err)
	assert.Equal(t, obfuscate.VariantRotation, c.Name())

	c, err = obfuscate.New("AES", []byte(obfuscate.DevKey))
	require.NoError(t, err)
	assert.Equal(t, obfuscate.VariantAES, c.Name())

	_, err = obfuscate.New("aes", []byte("short"))
	assert.Error(t, err)

	_, err = obfuscate.New("rot13", nil)
	assert.Error(t, err)
}
