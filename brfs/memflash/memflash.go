// Package memflash provides a RAM-backed implementation of brfs.FlashDevice,
// for tests and for running BRFS images on a host without real SPI NOR
// hardware.
package memflash

import (
	"encoding/binary"
	"io"

	"github.com/noxer/bytewriter"
	"github.com/xaionaro-go/bytesextra"
)

const sectorBytes = 1024 * 4 // FlashSectorWords * 4 bytes/word
const pageBytes = 64 * 4     // FlashPageWords * 4 bytes/word

// Device is an in-memory flash chip. Erase sets every byte in the target
// sector to 0xFF, matching the erased state of real NOR flash; Write only
// ever clears bits (ANDs them in), so writing to an unerased region
// behaves the way real flash would rather than silently overwriting.
type Device struct {
	bytes []byte
	rws   io.ReadWriteSeeker
}

// New allocates a Device of the given size in bytes, pre-erased (all
// 0xFF).
func New(sizeBytes int) *Device {
	buf := make([]byte, sizeBytes)
	for i := range buf {
		buf[i] = 0xFF
	}
	return FromBytes(buf)
}

// FromBytes wraps an existing byte slice as flash contents, e.g. one just
// read back from an image file on disk.
func FromBytes(buf []byte) *Device {
	return &Device{
		bytes: buf,
		rws:   bytesextra.NewReadWriteSeeker(buf),
	}
}

// Bytes returns the device's raw backing storage, e.g. for persisting it
// to an image file.
func (d *Device) Bytes() []byte {
	return d.bytes
}

func (d *Device) EraseSector(byteAddr uint32) error {
	start := (byteAddr / sectorBytes) * sectorBytes
	end := start + sectorBytes
	if int(end) > len(d.bytes) {
		end = uint32(len(d.bytes))
	}
	for i := start; i < end; i++ {
		d.bytes[i] = 0xFF
	}
	return nil
}

// WriteWords programs words at byteAddr, MSB-first per word, ANDing each byte into the existing flash contents since
// real flash programming can only clear bits, never set them.
func (d *Device) WriteWords(byteAddr uint32, words []uint32) error {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		binary.BigEndian.PutUint32(buf[i*4:i*4+4], w)
	}
	for i, b := range buf {
		buf[i] = d.bytes[int(byteAddr)+i] & b
	}

	target := bytewriter.New(d.bytes[byteAddr:])
	_, err := target.Write(buf)
	return err
}

func (d *Device) ReadWords(byteAddr uint32, words []uint32) error {
	if _, err := d.rws.Seek(int64(byteAddr), io.SeekStart); err != nil {
		return err
	}
	buf := make([]byte, len(words)*4)
	if _, err := io.ReadFull(d.rws, buf); err != nil {
		return err
	}
	for i := range words {
		words[i] = binary.BigEndian.Uint32(buf[i*4 : i*4+4])
	}
	return nil
}
