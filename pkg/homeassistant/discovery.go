package homeassistant

import (
	"github.com/raterudder/hydroquebec/pkg/common"
	"github.com/raterudder/hydroquebec/pkg/sensor"
	"github.com/raterudder/hydroquebec/pkg/types"
)

// Device groups every sensor of one account in Home Assistant.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// Origin tells Home Assistant which software published the entity.
type Origin struct {
	Name            string `json:"name"`
	SoftwareVersion string `json:"sw_version,omitempty"`
}

// Config is the MQTT discovery payload for one sensor.
//
// See https://www.home-assistant.io/integrations/sensor.mqtt/
type Config struct {
	Name              string `json:"name"`
	UniqueID          string `json:"unique_id"`
	ObjectID          string `json:"object_id"`
	StateTopic        string `json:"state_topic"`
	AvailabilityTopic string `json:"availability_topic"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	Icon              string `json:"icon,omitempty"`
	DeviceClass       string `json:"device_class,omitempty"`
	StateClass        string `json:"state_class,omitempty"`
	Device            Device `json:"device"`
	Origin            Origin `json:"origin"`
}

type classes struct {
	device string
	state  string
}

// unitClasses picks the Home Assistant device and state class from the unit.
// Day counts have no matching device class.
var unitClasses = map[string]classes{
	types.UnitPrice:        {"monetary", "total"},
	types.UnitKilowattHour: {"energy", "total"},
	types.UnitCelsius:      {"temperature", "measurement"},
}

func (b *Bridge) discoveryTopic(s *sensor.Sensor) string {
	return b.discoveryPrefix + "/sensor/" + s.ObjectID() + "/config"
}

func (b *Bridge) stateTopic(s *sensor.Sensor) string {
	return b.statePrefix + "/" + s.ObjectID() + "/state"
}

func (b *Bridge) availabilityTopic() string {
	return b.statePrefix + "/status"
}

func (b *Bridge) discoveryConfig(s *sensor.Sensor, device Device) Config {
	c := unitClasses[s.Unit()]
	return Config{
		Name:              s.Name(),
		UniqueID:          s.UniqueID(),
		ObjectID:          s.ObjectID(),
		StateTopic:        b.stateTopic(s),
		AvailabilityTopic: b.availabilityTopic(),
		UnitOfMeasurement: s.Unit(),
		Icon:              s.Icon(),
		DeviceClass:       c.device,
		StateClass:        c.state,
		Device:            device,
		Origin: Origin{
			Name:            "hydroquebec",
			SoftwareVersion: common.Version(),
		},
	}
}
