package sensor

import (
	"context"
	"math"
	"strings"
	"sync"

	"github.com/raterudder/hydroquebec/pkg/types"
)

// Sensor exposes one cached field of an account as a read-only value.
type Sensor struct {
	data       *Data
	field      string
	clientName string
	sensorType types.SensorType

	mu    sync.RWMutex
	state *float64
}

// New returns a Sensor for field. field must be a catalog key.
func New(data *Data, field, clientName string) *Sensor {
	st, _ := types.LookupSensorType(field)
	return &Sensor{
		data:       data,
		field:      field,
		clientName: clientName,
		sensorType: st,
	}
}

// Field returns the catalog identifier the sensor reads.
func (s *Sensor) Field() string {
	return s.field
}

// AccountName returns the friendly name of the account the sensor belongs to.
func (s *Sensor) AccountName() string {
	return s.clientName
}

// Contract returns the contract the sensor reads from.
func (s *Sensor) Contract() string {
	return s.data.Contract()
}

// Name returns the display name, prefixed by the account name.
func (s *Sensor) Name() string {
	return s.clientName + " " + s.sensorType.Name
}

// ObjectID returns the identifier the host platform builds the entity id
// from, e.g. "hydroquebec_balance".
func (s *Sensor) ObjectID() string {
	return objectIDSanitizer.Replace(strings.ToLower(s.clientName + "_" + s.field))
}

// UniqueID returns an identifier that stays stable across restarts and
// account renames.
func (s *Sensor) UniqueID() string {
	return objectIDSanitizer.Replace("hydroquebec_" + s.Contract() + "_" + s.field)
}

var objectIDSanitizer = strings.NewReplacer(" ", "_", "-", "_", ".", "_", ":", "_", "/", "_", "#", "_", "+", "_")

// Unit returns the unit of measurement.
func (s *Sensor) Unit() string {
	return s.sensorType.Unit
}

// Icon returns the icon to use in the frontend.
func (s *Sensor) Icon() string {
	return s.sensorType.Icon
}

// State returns the last observed value, or false if none has been observed
// yet.
func (s *Sensor) State() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return 0, false
	}
	return *s.state, true
}

// Update asks the shared Data to update and then copies the field out of the
// cache. A field missing from the cache leaves the previous state in place.
func (s *Sensor) Update(ctx context.Context) {
	s.data.Update(ctx)

	v, ok := s.data.Value(s.field)
	if !ok {
		return
	}
	v = round2(v)

	s.mu.Lock()
	s.state = &v
	s.mu.Unlock()
}

// round2 rounds to two decimals, halves away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
