// Package hydroquebecmock provides a testify mock of hydroquebec.Client.
package hydroquebecmock

import (
	"context"

	"github.com/raterudder/hydroquebec/pkg/hydroquebec"
	"github.com/stretchr/testify/mock"
)

// Client is a mock of hydroquebec.Client.
type Client struct {
	mock.Mock
}

var _ hydroquebec.Client = (*Client)(nil)

func (m *Client) Fetch(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Client) Contracts() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *Client) Data(contract string) (map[string]float64, error) {
	args := m.Called(contract)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}
