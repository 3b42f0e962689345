package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAddressRequired       = errors.New("address is required")
	ErrInvalidAddress        = errors.New("address is not a valid hex account")
	ErrProviderNotConfigured = errors.New("MORALIS_API_KEY is not configured")
)

// UpstreamError reports a failed call to the history provider. StatusCode is
// zero when the failure happened before a response arrived.
type UpstreamError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ValidateAddress trims raw and checks it is a 0x-prefixed 20 byte hex
// account.
func ValidateAddress(raw string) (string, error) {
	address := strings.TrimSpace(raw)
	if address == "" {
		return "", ErrAddressRequired
	}
	if !common.IsHexAddress(address) || !strings.HasPrefix(strings.ToLower(address), "0x") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return address, nil
}
