// Package device describes the flash device contract the allocator is
// built against and the logging/error-wrapping discipline all higher
// packages use when talking to it. The concrete NOR-flash driver is an
// external collaborator outside this module; this package only defines
// the interface, and a test double lives in internal/flashsim.
package device

import (
	"fmt"

	"github.com/pkg/errors"
)

// Device is the flash device contract consumed by the allocator. Geometry
// accessors never fail; mutators return an error.
type Device interface {
	PageSize() uint32
	SubsectorSize() uint32
	PageBase(addr uint32) uint32
	SubsectorBase(addr uint32) uint32
	KFStart() uint32
	KFEnd() uint32

	Startup() error
	EraseSubsector(addr uint32) error
	// PageWrite programs data starting at a page-aligned addr. len(data)
	// must not exceed PageSize(); callers that need to program more must
	// chunk page-by-page themselves.
	PageWrite(addr uint32, data []byte) error
	EnableMemoryMappedMode() error
	DisableMemoryMappedMode() error

	// ReadAt reads len(buf) bytes starting at addr. Only valid in
	// memory-mapped mode; callers are responsible for the mode discipline.
	ReadAt(addr uint32, buf []byte) error
}

// ErrFlashOp is wrapped around every failure returned by a Device method,
// so callers can test for "the device driver failed" independent of the
// specific operation, via errors.Is.
var ErrFlashOp = errors.New("device: flash operation failed")

// Wrap annotates err (if non-nil) with the failing operation and address,
// and tags it so errors.Is(err, ErrFlashOp) succeeds. Every internal
// package that talks to a Device routes its device-layer errors through
// this helper before returning.
func Wrap(err error, op string, addr uint32) error {
	if err == nil {
		return nil
	}
	tagged := fmt.Errorf("%w: %v", ErrFlashOp, err)
	return errors.Wrapf(tagged, "%s: addr=0x%08x", op, addr)
}

// WithProgrammingMode brackets fn with DisableMemoryMappedMode/
// EnableMemoryMappedMode: every erase and program call must be bracketed
// this way, and every public operation must leave the device in
// memory-mapped mode on return, even on error paths. Re-enabling is
// best-effort: a failure to do so is logged, never propagated.
func WithProgrammingMode(dev Device, log LogSink, op string, fn func() error) error {
	if err := dev.DisableMemoryMappedMode(); err != nil {
		return Wrap(err, op+": disable memory-mapped mode", 0)
	}

	fnErr := fn()

	if err := dev.EnableMemoryMappedMode(); err != nil {
		log.Errorf("%s: failed to re-enable memory-mapped mode: %v", op, err)
	}

	return fnErr
}
