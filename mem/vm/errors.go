package vm

import (
	"errors"

	"github.com/sarchlab/vmsim/mem/vm/codec"
)

var (
	// ErrConfiguration reports an invalid or inconsistent Config.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidHexAddress reports an address that cannot be parsed as hex.
	ErrInvalidHexAddress = errors.New("invalid hex address")

	// ErrAddressOutOfRange reports an address outside the addressed space.
	ErrAddressOutOfRange = errors.New("address out of range")

	// ErrNoMappingFound reports a physical frame that no present page owns.
	ErrNoMappingFound = errors.New("no mapping found")

	// ErrEncodingOverflow reports a value that does not fit the bit width
	// derived from the configuration. It signals a defect, not bad input.
	ErrEncodingOverflow = codec.ErrEncodingOverflow

	// ErrInconsistentTable reports a page table or load queue that breaks
	// the residency invariants.
	ErrInconsistentTable = errors.New("inconsistent page table")

	// ErrIndexOutOfRange reports a page table index that does not exist.
	ErrIndexOutOfRange = errors.New("page index out of range")

	// ErrUnknownField reports a manual edit on a field that cannot be edited.
	ErrUnknownField = errors.New("unknown page table field")

	// ErrInvalidValue reports a manual edit with a value the field cannot
	// hold.
	ErrInvalidValue = errors.New("invalid field value")

	// ErrNotResident reports an operation that needs a resident page.
	ErrNotResident = errors.New("page is not resident")

	// ErrNoFreeFrame reports that every physical frame is taken.
	ErrNoFreeFrame = errors.New("no free physical frame")

	// ErrPagePresent reports a fault on a page that is already resident.
	ErrPagePresent = errors.New("page is already present")
)
