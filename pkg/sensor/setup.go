package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/hydroquebec/pkg/hydroquebec"
	"github.com/raterudder/hydroquebec/pkg/log"
	"github.com/raterudder/hydroquebec/pkg/types"
)

// ErrSetupAborted is wrapped by Setup when the portal could not be reached
// with the configured credentials.
var ErrSetupAborted = errors.New("setup aborted")

// Platform is the host the sensors are registered with.
type Platform interface {
	// AddSensors registers sensors with the host. When update is true each
	// sensor is updated before its first state is published.
	AddSensors(ctx context.Context, sensors []*Sensor, update bool) error
}

// ClientFactory builds the portal client for one set of credentials.
type ClientFactory func(username, password string) hydroquebec.Client

// Account is the result of a successful Setup.
type Account struct {
	Name      string
	Data      *Data
	Contracts []string
	Sensors   []*Sensor
}

// Configured registers the account flags and returns the config they fill
// in.
func Configured() *types.Config {
	c := &types.Config{}
	username := lflag.RequiredString("hydroquebec-username", "Username for the HydroQuebec customer portal")
	password := lflag.RequiredString("hydroquebec-password", "Password for the HydroQuebec customer portal")
	contract := lflag.RequiredString("hydroquebec-contract", "Contract whose data is exposed")
	name := lflag.String("hydroquebec-name", types.DefaultName, "Prefix for every sensor name")
	monitored := lflag.RequiredString("hydroquebec-monitored-variables", "comma-delimited list of fields to expose (available: "+strings.Join(types.CatalogFields(), ", ")+")")
	interval := lflag.Duration("hydroquebec-update-interval", types.DefaultUpdateInterval, "Minimum time between two fetches from the portal")

	lflag.Do(func() {
		c.Username = *username
		c.Password = *password
		c.Contract = *contract
		c.Name = *name
		c.MonitoredVariables = types.ParseList(*monitored)
		c.UpdateInterval = *interval
	})
	return c
}

// Setup validates cfg, logs into the portal and registers one Sensor per
// monitored variable with platform. A config error is returned before any
// network call. If the portal rejects the login nothing is registered and
// the returned error wraps ErrSetupAborted.
func Setup(ctx context.Context, cfg types.Config, newClient ClientFactory, platform Platform) (*Account, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx = log.WithAccount(ctx, cfg.Name, cfg.Contract)

	data := NewData(newClient(cfg.Username, cfg.Password), cfg.Contract, cfg.UpdateInterval)
	contracts, err := data.ContractList(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed login", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", ErrSetupAborted, err)
	}
	log.Ctx(ctx).InfoContext(ctx, "contract list", slog.String("contracts", strings.Join(contracts, ", ")))

	if !containsContract(contracts, cfg.Contract) {
		log.Ctx(ctx).WarnContext(ctx, "configured contract is not on the account")
	}

	sensors := make([]*Sensor, 0, len(cfg.MonitoredVariables))
	for _, field := range cfg.MonitoredVariables {
		sensors = append(sensors, New(data, field, cfg.Name))
	}

	if err := platform.AddSensors(ctx, sensors, true); err != nil {
		return nil, fmt.Errorf("failed to add sensors: %w", err)
	}

	return &Account{
		Name:      cfg.Name,
		Data:      data,
		Contracts: contracts,
		Sensors:   sensors,
	}, nil
}

func containsContract(contracts []string, contract string) bool {
	for _, c := range contracts {
		if c == contract {
			return true
		}
	}
	return false
}
