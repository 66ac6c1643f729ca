// Package codec converts page numbers and addresses between integers,
// fixed-width binary strings, and hexadecimal strings.
package codec

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

var (
	// ErrEncodingOverflow is returned when a value does not fit in the
	// requested number of bits.
	ErrEncodingOverflow = errors.New("value does not fit in bit width")

	// ErrGrouping is returned when a binary string cannot be split into
	// nibbles.
	ErrGrouping = errors.New("binary length is not a multiple of 4")

	// ErrInvalidBinary is returned for strings with characters other than 0
	// and 1.
	ErrInvalidBinary = errors.New("invalid binary string")

	// ErrInvalidHex is returned for strings that are not base-16 numbers.
	ErrInvalidHex = errors.New("invalid hex string")

	// ErrNotPowerOfTwo is returned when an exact log2 is requested for a
	// value that is not a power of two.
	ErrNotPowerOfTwo = errors.New("not a power of two")
)

const hexDigits = "0123456789ABCDEF"

// ToBinary returns value as an unsigned binary string, zero-padded to exactly
// width characters.
func ToBinary(value uint64, width int) (string, error) {
	if width < 0 {
		return "", fmt.Errorf("negative width %d: %w", width, ErrEncodingOverflow)
	}

	if bits.Len64(value) > width {
		return "", fmt.Errorf("%d needs %d bits, have %d: %w",
			value, bits.Len64(value), width, ErrEncodingOverflow)
	}

	if width == 0 {
		return "", nil
	}

	s := strconv.FormatUint(value, 2)

	return strings.Repeat("0", width-len(s)) + s, nil
}

// ParseBinary converts a binary string into an integer.
func ParseBinary(bin string) (uint64, error) {
	if bin == "" {
		return 0, fmt.Errorf("empty string: %w", ErrInvalidBinary)
	}

	v, err := strconv.ParseUint(bin, 2, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", bin, ErrInvalidBinary)
	}

	return v, nil
}

// BinaryToHex maps each 4-bit group of bin, starting from the most
// significant bit, to one uppercase hex digit.
func BinaryToHex(bin string) (string, error) {
	if len(bin)%4 != 0 {
		return "", fmt.Errorf("%q has %d bits: %w", bin, len(bin), ErrGrouping)
	}

	var sb strings.Builder
	sb.Grow(len(bin) / 4)

	for i := 0; i < len(bin); i += 4 {
		digit := 0

		for _, c := range bin[i : i+4] {
			switch c {
			case '0':
				digit <<= 1
			case '1':
				digit = digit<<1 | 1
			default:
				return "", fmt.Errorf("%q: %w", bin, ErrInvalidBinary)
			}
		}

		sb.WriteByte(hexDigits[digit])
	}

	return sb.String(), nil
}

// HexToBinary parses hex as a base-16 number, with or without a 0x prefix,
// and re-emits it as a zero-padded binary string of width bits.
func HexToBinary(hex string, width int) (string, error) {
	v, err := ParseHex(hex)
	if err != nil {
		return "", err
	}

	return ToBinary(v, width)
}

// ParseHex parses an unsigned hexadecimal number with an optional 0x or 0X
// prefix. Numbers wider than 64 bits are reported as ErrEncodingOverflow.
func ParseHex(hex string) (uint64, error) {
	digits := TrimHexPrefix(strings.TrimSpace(hex))
	if digits == "" {
		return 0, fmt.Errorf("%q: %w", hex, ErrInvalidHex)
	}

	v, err := strconv.ParseUint(digits, 16, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%q exceeds 64 bits: %w", hex, ErrEncodingOverflow)
	}

	if err != nil {
		return 0, fmt.Errorf("%q: %w", hex, ErrInvalidHex)
	}

	return v, nil
}

// TrimHexPrefix removes a leading 0x or 0X.
func TrimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}

	return s
}

// FormatHex renders value as a 0x-prefixed hex string. The value is first
// encoded in width bits, which are then left-padded to a whole number of
// nibbles, so the digits always derive from the binary form.
func FormatHex(value uint64, width int) (string, error) {
	if bits.Len64(value) > width {
		return "", fmt.Errorf("%d needs more than %d bits: %w",
			value, width, ErrEncodingOverflow)
	}

	bin, err := ToBinary(value, NibbleAligned(width))
	if err != nil {
		return "", err
	}

	hex, err := BinaryToHex(bin)
	if err != nil {
		return "", err
	}

	return "0x" + hex, nil
}

// NibbleAligned rounds width up to the next multiple of 4. A zero width
// still gets one nibble so that a value always has at least one digit.
func NibbleAligned(width int) int {
	if width <= 0 {
		return 4
	}

	return (width + 3) / 4 * 4
}

// Log2Exact returns log2(n) when n is a power of two.
func Log2Exact(n uint64) (int, error) {
	if n == 0 || n&(n-1) != 0 {
		return 0, fmt.Errorf("%d: %w", n, ErrNotPowerOfTwo)
	}

	return bits.TrailingZeros64(n), nil
}

// SplitBinary splits an address into its page-number and offset segments.
// The first pageBits characters are the page number.
func SplitBinary(bin string, pageBits int) (page, offset string) {
	if pageBits <= 0 {
		return "", bin
	}

	if pageBits >= len(bin) {
		return bin, ""
	}

	return bin[:pageBits], bin[pageBits:]
}
