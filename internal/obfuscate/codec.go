// Package obfuscate provides the reversible transforms applied to session
// records before they leave the process. Neither variant is a security boundary.
package obfuscate

import (
	"fmt"
	"strings"
)

// Variant names accepted by New.
const (
	VariantRotation = "rotation"
	VariantAES      = "aes"
)

// DevKey is the compiled-in fallback cipher key. It is public and only suitable
// for local development; production configuration must override it.
const DevKey = "theraia-dev-key-not-for-prod-32b"

// Codec encodes record text into a blob and back.
// Decode(Encode(x)) == x for every string x.
type Codec interface {
	Name() string
	Encode(text string) (string, error)
	Decode(blob string) (string, error)
}

// DecodeError is the single failure kind for malformed or corrupted blobs.
type DecodeError struct {
	Variant string
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode (%s): %s: %v", e.Variant, e.Reason, e.Err)
	}
	return fmt.Sprintf("decode (%s): %s", e.Variant, e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// New returns the codec for variant. key is only used by the aes variant.
func New(variant string, key []byte) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(variant)) {
	case VariantRotation, "":
		return RotationCodec{}, nil
	case VariantAES:
		return NewAESCodec(key)
	default:
		return nil, fmt.Errorf("unknown cipher variant %q (want %q or %q)", variant, VariantRotation, VariantAES)
	}
}
