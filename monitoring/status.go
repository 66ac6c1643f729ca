package monitoring

import (
	"errors"
	"net/http"

	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/addresstranslator"
	"github.com/sarchlab/vmsim/mem/vm/session"
)

var badRequestErrors = []error{
	vm.ErrConfiguration,
	vm.ErrInvalidHexAddress,
	vm.ErrAddressOutOfRange,
	vm.ErrIndexOutOfRange,
	vm.ErrUnknownField,
	vm.ErrInvalidValue,
	vm.ErrNotResident,
	vm.ErrNoFreeFrame,
	addresstranslator.ErrUnknownDirection,
}

// StatusOf maps an error returned by the session to an HTTP status code.
// Bad input is 400, a frame without a page is 404, and a request that needs
// a table before one exists is 409. Everything else is 500.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, vm.ErrNoMappingFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotGenerated):
		return http.StatusConflict
	}

	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}

	return http.StatusInternalServerError
}
