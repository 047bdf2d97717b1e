package bus

import "fmt"

// SplitValue splits an unsigned integer into length bytes in little-endian
// order. It fails if value does not fit the requested width or if the width
// is not 1, 2 or 4 bytes.
func SplitValue(value, length int) ([]byte, error) {
	if err := checkWidth(length); err != nil {
		return nil, err
	}
	if value < 0 || uint64(value) > maxForWidth(length) {
		return nil, fmt.Errorf("%d does not fit in %d byte(s): %w", value, length, ErrValueRange)
	}
	data := make([]byte, length)
	for i := range data {
		data[i] = byte(value >> (8 * i))
	}
	return data, nil
}

// JoinValue is the inverse of SplitValue: it assembles a little-endian byte
// sequence of width 1, 2 or 4 into an unsigned integer.
func JoinValue(data []byte) (int, error) {
	if err := checkWidth(len(data)); err != nil {
		return 0, err
	}
	value := 0
	for i, b := range data {
		value |= int(b) << (8 * i)
	}
	return value, nil
}

func checkWidth(length int) error {
	switch length {
	case 1, 2, 4:
		return nil
	}
	return fmt.Errorf("%d byte(s): %w", length, ErrWidth)
}

func maxForWidth(length int) uint64 {
	return 1<<(8*length) - 1
}
