package format

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EncodingError reports the first byte offset that is not valid UTF-8.
type EncodingError struct {
	Offset int
	Byte   byte
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid UTF-8 byte 0x%02x at offset %d", e.Byte, e.Offset)
}

// DecodeUTF8 validates data as UTF-8 text and strips a leading byte order
// mark (Excel writes one on CSV export). Invalid input is rejected rather
// than sanitized so the operator learns the file needs re-saving.
func DecodeUTF8(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return nil, &EncodingError{Offset: i, Byte: data[i]}
		}
		i += size
	}
	// unreachable: utf8.Valid disagreed with DecodeRune
	return nil, &EncodingError{}
}
