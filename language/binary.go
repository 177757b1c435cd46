package language

import "unicode/utf8"

// sniffSize is how many leading bytes are inspected for null bytes.
const sniffSize = 512

// IsBinaryContent checks if the given byte slice appears to be binary content.
// Only the first 512 bytes are inspected; a null byte there marks the data as binary.
func IsBinaryContent(data []byte) bool {
	checkSize := min(len(data), sniffSize)
	for i := 0; i < checkSize; i++ {
		if data[i] == 0 {
			return true
		}
	}
	return false
}

// IsText reports whether data can be processed as source text:
// no null bytes in the sniffed prefix and valid UTF-8 throughout.
func IsText(data []byte) bool {
	return !IsBinaryContent(data) && utf8.Valid(data)
}
