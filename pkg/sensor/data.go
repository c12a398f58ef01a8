package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/raterudder/hydroquebec/pkg/hydroquebec"
	"github.com/raterudder/hydroquebec/pkg/log"
	"github.com/raterudder/hydroquebec/pkg/types"
)

// Data owns the portal client for one account and caches the values of the
// configured contract. It is shared by every Sensor of that account.
type Data struct {
	client   hydroquebec.Client
	contract string
	interval time.Duration
	now      func() time.Time

	// lastUpdate is the time Update last let a fetch through
	lastUpdate time.Time

	mu     sync.RWMutex
	values map[string]float64
}

// NewData returns a Data that refreshes contract at most once per interval.
func NewData(client hydroquebec.Client, contract string, interval time.Duration) *Data {
	if interval <= 0 {
		interval = types.DefaultUpdateInterval
	}
	return &Data{
		client:   client,
		contract: contract,
		interval: interval,
		now:      time.Now,
		values:   map[string]float64{},
	}
}

// Contract returns the contract whose values are cached.
func (d *Data) Contract() string {
	return d.contract
}

// ContractList fetches from the portal, regardless of the throttle, and
// returns the contracts on the account. Errors are returned unlogged.
func (d *Data) ContractList(ctx context.Context) ([]string, error) {
	if err := d.client.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch contracts: %w", err)
	}
	return d.client.Contracts(), nil
}

// Update refreshes the cached values from the portal. Calls made less than
// the interval after the previous one return without contacting the portal.
// Failures are logged and leave the cache untouched.
func (d *Data) Update(ctx context.Context) {
	now := d.now()
	if !d.lastUpdate.IsZero() && now.Before(d.lastUpdate.Add(d.interval)) {
		return
	}
	d.lastUpdate = now

	if !d.fetch(ctx) {
		return
	}

	raw, err := d.client.Data(d.contract)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "no hydroquebec data for contract", slog.Any("error", err))
		return
	}
	values := types.TranslateFields(raw)

	d.mu.Lock()
	d.values = values
	d.mu.Unlock()

	log.Ctx(ctx).DebugContext(ctx, "updated hydroquebec data", slog.Int("fields", len(values)))
}

// fetch asks the portal for new data and reports whether it succeeded.
func (d *Data) fetch(ctx context.Context) bool {
	if err := d.client.Fetch(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "error on receive last hydroquebec data", slog.Any("error", err))
		return false
	}
	return true
}

// Value returns the cached value of field.
func (d *Data) Value(field string) (float64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.values[field]
	return v, ok
}

// Values returns a copy of the cache.
func (d *Data) Values() map[string]float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]float64, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}
