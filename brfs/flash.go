package brfs

// FlashDevice is the SPI NOR flash collaborator BRFS treats as opaque.
// Implementations are word-addressed for read/write and sector-addressed
// for erase; BRFS never assumes anything about the underlying medium
// beyond this contract.
//
// The real hardware driver lives outside this module (it's an external
// collaborator, same as the keyboard or GPU drivers); memflash.Device
// provides a RAM-backed implementation for tests and for running BRFS
// images on a host.
type FlashDevice interface {
	// EraseSector erases the 4 KiB-aligned sector containing byteAddr.
	EraseSector(byteAddr uint32) error

	// WriteWords programs words at a 256-byte page-aligned byteAddr. At
	// most FlashPageWords words may be written in a single call.
	WriteWords(byteAddr uint32, words []uint32) error

	// ReadWords reads len(words) words starting at byteAddr. Any length is
	// permitted; there is no page-alignment requirement for reads.
	ReadWords(byteAddr uint32, words []uint32) error
}

// ProgressFunc reports progress for long-running operations.
// phase is one of "mount", "format-zero", "sync-fat", "sync-data". total is
// stable for the duration of one operation; current is monotone
// non-decreasing up to total.
type ProgressFunc func(phase string, current, total uint32)
