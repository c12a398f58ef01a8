package sensor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raterudder/hydroquebec/pkg/hydroquebec"
	"github.com/raterudder/hydroquebec/pkg/hydroquebec/hydroquebecmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var firstFetch = map[string]float64{
	"solde":                 12.345,
	"montantFacturePeriode": 80,
	"consoTotalQuot":        41.2,
}

func TestDataUpdateThrottled(t *testing.T) {
	client := &hydroquebecmock.Client{}
	client.On("Fetch", mock.Anything).Return(nil)
	client.On("Data", "0123456789").Return(firstFetch, nil)

	d, clock := newTestData(client)
	d.Update(context.Background())
	clock.Advance(59 * time.Minute)
	d.Update(context.Background())

	client.AssertNumberOfCalls(t, "Fetch", 1)
	assert.Equal(t, map[string]float64{
		"balance":                     12.345,
		"period_total_bill":           80,
		"yesterday_total_consumption": 41.2,
	}, d.Values())
}

func TestDataUpdateAfterInterval(t *testing.T) {
	client := &hydroquebecmock.Client{}
	client.On("Fetch", mock.Anything).Return(nil)
	client.On("Data", "0123456789").Return(firstFetch, nil)

	d, clock := newTestData(client)
	d.Update(context.Background())
	clock.Advance(time.Hour + time.Second)
	d.Update(context.Background())

	client.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestDataUpdateExactlyAtInterval(t *testing.T) {
	client := &hydroquebecmock.Client{}
	client.On("Fetch", mock.Anything).Return(nil)
	client.On("Data", "0123456789").Return(firstFetch, nil)

	d, clock := newTestData(client)
	d.Update(context.Background())
	clock.Advance(time.Hour)
	d.Update(context.Background())

	client.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestDataFetchErrorKeepsCache(t *testing.T) {
	client := &hydroquebecmock.Client{}
	client.On("Fetch", mock.Anything).Return(nil).Once()
	client.On("Fetch", mock.Anything).Return(&hydroquebec.Error{Op: "login", Err: errors.New("boom")}).Once()
	client.On("Data", "0123456789").Return(firstFetch, nil).Once()

	d, clock := newTestData(client)
	s := New(d, "balance", "HydroQuebec")
	s.Update(context.Background())
	before := d.Values()

	clock.Advance(2 * time.Hour)
	s.Update(context.Background())

	assert.Equal(t, before, d.Values())
	v, ok := s.State()
	require.True(t, ok)
	assert.Equal(t, 12.35, v)

	client.AssertNumberOfCalls(t, "Fetch", 2)
	client.AssertNumberOfCalls(t, "Data", 1)
}

func TestDataFailedFetchStillThrottles(t *testing.T) {
	client := &hydroquebecmock.Client{}
	client.On("Fetch", mock.Anything).Return(&hydroquebec.Error{Op: "login", Err: errors.New("boom")})

	d, clock := newTestData(client)
	d.Update(context.Background())
	clock.Advance(time.Minute)
	d.Update(context.Background())

	client.AssertNumberOfCalls(t, "Fetch", 1)
	assert.Empty(t, d.Values())
}

func TestDataMissingContractKeepsCache(t *testing.T) {
	client := &hydroquebecmock.Client{}
	client.On("Fetch", mock.Anything).Return(nil)
	client.On("Data", "0123456789").Return(firstFetch, nil).Once()
	client.On("Data", "0123456789").Return(nil, hydroquebec.ErrUnknownContract).Once()

	d, clock := newTestData(client)
	d.Update(context.Background())
	clock.Advance(2 * time.Hour)
	d.Update(context.Background())

	v, ok := d.Value("balance")
	require.True(t, ok)
	assert.Equal(t, 12.345, v)
}

func TestDataCacheFullyReplaced(t *testing.T) {
	client := &hydroquebecmock.Client{}
	client.On("Fetch", mock.Anything).Return(nil)
	client.On("Data", "0123456789").Return(firstFetch, nil).Once()
	client.On("Data", "0123456789").Return(map[string]float64{"consoTotalQuot": 1}, nil).Once()

	d, clock := newTestData(client)
	d.Update(context.Background())
	clock.Advance(2 * time.Hour)
	d.Update(context.Background())

	assert.Equal(t, map[string]float64{"yesterday_total_consumption": 1}, d.Values())
}

func TestDataContractList(t *testing.T) {
	t.Run("fetches regardless of throttle", func(t *testing.T) {
		client := &hydroquebecmock.Client{}
		client.On("Fetch", mock.Anything).Return(nil)
		client.On("Contracts").Return([]string{"0123456789", "999"})
		client.On("Data", "0123456789").Return(firstFetch, nil)

		d, _ := newTestData(client)
		d.Update(context.Background())

		contracts, err := d.ContractList(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"0123456789", "999"}, contracts)
		client.AssertNumberOfCalls(t, "Fetch", 2)
	})

	t.Run("surfaces fetch errors", func(t *testing.T) {
		client := &hydroquebecmock.Client{}
		client.On("Fetch", mock.Anything).Return(&hydroquebec.Error{Op: "login", Err: hydroquebec.ErrAuthentication})

		d, _ := newTestData(client)
		contracts, err := d.ContractList(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, hydroquebec.ErrAuthentication)
		assert.Nil(t, contracts)
		client.AssertNotCalled(t, "Contracts")
	})
}

func TestNewDataDefaultInterval(t *testing.T) {
	d := NewData(&hydroquebecmock.Client{}, "1", 0)
	assert.Equal(t, time.Hour, d.interval)
	assert.Equal(t, "1", d.Contract())
}
