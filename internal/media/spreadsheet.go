package media

import "fmt"

const minSpreadsheetBytes = 512

// ValidateSpreadsheet rejects truncated or non-ZIP workbook downloads.
// declaredLength < 0 skips the length comparison.
func ValidateSpreadsheet(data []byte, declaredLength int64) error {
	if declaredLength >= 0 && declaredLength != int64(len(data)) {
		return fmt.Errorf("%w: got %d of %d bytes", ErrCorruptSpreadsheet, len(data), declaredLength)
	}
	if len(data) < minSpreadsheetBytes {
		return fmt.Errorf("%w: only %d bytes", ErrCorruptSpreadsheet, len(data))
	}
	if data[0] != 0x50 || data[1] != 0x4B {
		return fmt.Errorf("%w: missing zip signature", ErrCorruptSpreadsheet)
	}
	return nil
}
