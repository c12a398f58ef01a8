package hydroquebec

import (
	"context"
	"errors"
)

// ErrAuthentication is matched by errors returned when the portal rejects the
// configured credentials.
var ErrAuthentication = errors.New("authentication rejected")

// ErrUnknownContract is returned by Data for a contract the last successful
// fetch did not return.
var ErrUnknownContract = errors.New("unknown contract")

// Client fetches consumption data for every contract on one account.
type Client interface {
	// Fetch logs into the portal and downloads the latest data for every
	// contract. Provider failures are returned as *Error. On failure the
	// previously fetched data is kept.
	Fetch(ctx context.Context) error

	// Contracts returns the contract identifiers seen by the last successful
	// Fetch.
	Contracts() []string

	// Data returns the raw portal values for contract, keyed by the portal's
	// field names.
	Data(contract string) (map[string]float64, error)
}

// Error is returned for any failure talking to the portal.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "hydroquebec " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err came from the portal client.
func IsProviderError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
