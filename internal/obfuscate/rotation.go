package obfuscate

// RotationCodec shifts a-z, A-Z and 0-9 by one position, wrapping inside each
// range. Every other byte passes through untouched, so punctuation, newlines and
// multi-byte UTF-8 sequences survive unchanged.
type RotationCodec struct{}

func (RotationCodec) Name() string { return VariantRotation }

func (RotationCodec) Encode(text string) (string, error) {
	return rotate(text, 1), nil
}

// Decode never fails: every input is a valid rotated string.
func (RotationCodec) Decode(blob string) (string, error) {
	return rotate(blob, -1), nil
}

func rotate(s string, by int) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			b[i] = shift(c, 'a', 26, by)
		case c >= 'A' && c <= 'Z':
			b[i] = shift(c, 'A', 26, by)
		case c >= '0' && c <= '9':
			b[i] = shift(c, '0', 10, by)
		}
	}
	return string(b)
}

func shift(c, base byte, size, by int) byte {
	off := (int(c-base) + by) % size
	if off < 0 {
		off += size
	}
	return base + byte(off)
}
