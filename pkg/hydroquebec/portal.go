package hydroquebec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/hydroquebec/pkg/common"
	"github.com/raterudder/hydroquebec/pkg/log"
)

const (
	loginPath   = "portail/web/clientele/authentification"
	profilePath = "portail/fr/group/clientele/portrait-de-consommation"

	resourceContracts = "resourceObtenirContrats"
	resourcePeriod    = "resourceObtenirDonneesPeriodesConsommation"
	resourceDaily     = "resourceObtenirDonneesQuotidiennesConsommation"

	// balanceField is the portal field the contract list reports the account
	// balance under.
	balanceField = "solde"
)

// The portal reports days in Eastern Time.
var etLocation = func() *time.Location {
	loc, err := time.LoadLocation("America/Montreal")
	if err != nil {
		panic(fmt.Errorf("failed to load eastern time location: %w", err))
	}
	return loc
}()

// Options holds the settings shared by every Portal.
type Options struct {
	BaseURL string
	Timeout time.Duration
}

// Configured registers the portal flags and returns the options they fill in.
func Configured() *Options {
	o := &Options{}
	baseURL := lflag.String("hydroquebec-url", "https://www.hydroquebec.com", "Base URL of the HydroQuebec customer portal")
	timeout := lflag.Duration("hydroquebec-timeout", 15*time.Second, "Timeout for each request to the HydroQuebec portal")

	lflag.Do(func() {
		o.BaseURL = *baseURL
		o.Timeout = *timeout
	})
	return o
}

// Validate ensures the options are usable.
func (o Options) Validate() error {
	if o.BaseURL == "" {
		return errors.New("hydroquebec-url is required")
	}
	if _, err := url.Parse(o.BaseURL); err != nil {
		return fmt.Errorf("failed to parse hydroquebec url (%s): %w", o.BaseURL, err)
	}
	if o.Timeout <= 0 {
		return errors.New("hydroquebec-timeout must be positive")
	}
	return nil
}

// Portal implements Client against the HydroQuebec customer portal. The login
// session is kept in the http client's cookie jar.
type Portal struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	now      func() time.Time

	mu        sync.Mutex
	contracts []string
	data      map[string]map[string]float64
}

// NewPortal returns a Portal for one account.
func NewPortal(opts Options, username, password string) *Portal {
	return &Portal{
		client:   common.SessionClient(opts.Timeout),
		baseURL:  opts.BaseURL,
		username: username,
		password: password,
		now:      time.Now,
	}
}

// Fetch implements Client.
func (p *Portal) Fetch(ctx context.Context) error {
	if err := p.login(ctx); err != nil {
		return &Error{Op: "login", Err: err}
	}

	found, balances, err := p.getContracts(ctx)
	if err != nil {
		return &Error{Op: "contracts", Err: err}
	}

	yesterday := p.now().In(etLocation).AddDate(0, 0, -1).Format("2006-01-02")

	data := make(map[string]map[string]float64, len(found))
	contracts := make([]string, 0, len(found))
	for _, contract := range found {
		raw := map[string]float64{}
		if balance, ok := balances[contract]; ok {
			raw[balanceField] = balance
		}

		params := url.Values{}
		params.Set("noContrat", contract)
		ok, err := p.getCurrent(ctx, resourcePeriod, params, raw)
		if err != nil {
			return &Error{Op: "period " + contract, Err: err}
		}
		if !ok {
			return &Error{Op: "period " + contract, Err: fmt.Errorf("%s returned no results", resourcePeriod)}
		}

		// yesterday is usually published a few hours into the day
		params.Set("dateDebutPeriode", yesterday)
		params.Set("dateFinPeriode", yesterday)
		ok, err = p.getCurrent(ctx, resourceDaily, params, raw)
		if err != nil {
			return &Error{Op: "daily " + contract, Err: err}
		}
		if !ok {
			log.Ctx(ctx).DebugContext(ctx, "no hydroquebec daily data yet", slog.String("contract", contract), slog.String("day", yesterday))
		}

		data[contract] = raw
		contracts = append(contracts, contract)
	}
	sort.Strings(contracts)

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched hydroquebec data",
		slog.Int("contracts", len(contracts)),
		slog.String("day", yesterday),
	)

	p.mu.Lock()
	p.contracts = contracts
	p.data = data
	p.mu.Unlock()
	return nil
}

// Contracts implements Client.
func (p *Portal) Contracts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.contracts...)
}

// Data implements Client.
func (p *Portal) Data(contract string) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	raw, ok := p.data[contract]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, contract)
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out, nil
}

func (p *Portal) url(endpoint string, params url.Values) (string, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return "", err
	}
	u.Path, err = url.JoinPath(u.Path, endpoint)
	if err != nil {
		return "", err
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (p *Portal) login(ctx context.Context) error {
	if p.username == "" {
		return fmt.Errorf("%w: missing username", ErrAuthentication)
	}
	if p.password == "" {
		return fmt.Errorf("%w: missing password", ErrAuthentication)
	}

	u, err := p.url(loginPath, nil)
	if err != nil {
		return err
	}
	data := url.Values{}
	data.Set("_58_login", p.username)
	data.Set("_58_password", p.password)

	req, err := http.NewRequestWithContext(ctx, "POST", u, strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthentication, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	log.Ctx(ctx).DebugContext(ctx, "hydroquebec login success", slog.String("username", p.username))
	return nil
}

type portalResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Results json.RawMessage `json:"results"`
}

type contractEntry struct {
	Contract string `json:"noContrat"`
	Balance  any    `json:"solde"`
}

type currentEntry struct {
	Current map[string]any `json:"courant"`
}

func (p *Portal) getResource(ctx context.Context, resource string, params url.Values, dest any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("p_p_id", "lincdonneesconsommation_WAR_lincdonneesconsommationportlet")
	q.Set("p_p_lifecycle", "2")
	q.Set("p_p_resource_id", resource)

	u, err := p.url(profilePath, q)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", ErrAuthentication, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	var pr portalResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode hydroquebec response", slog.String("resource", resource), slog.Any("error", err))
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !pr.Success {
		if pr.Message == "" {
			return errors.New("hydroquebec unknown error")
		}
		return fmt.Errorf("hydroquebec api error: %s", pr.Message)
	}
	if err := json.Unmarshal(pr.Results, dest); err != nil {
		return fmt.Errorf("failed to decode %s results: %w", resource, err)
	}
	return nil
}

// getContracts returns the contracts on the account and the balance of each
// contract whose balance could be parsed.
func (p *Portal) getContracts(ctx context.Context) ([]string, map[string]float64, error) {
	var entries []contractEntry
	if err := p.getResource(ctx, resourceContracts, nil, &entries); err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 {
		return nil, nil, errors.New("no contracts on account")
	}
	contracts := make([]string, 0, len(entries))
	balances := make(map[string]float64, len(entries))
	for _, e := range entries {
		if e.Contract == "" {
			continue
		}
		contracts = append(contracts, e.Contract)
		balance, ok := parseValue(e.Balance)
		if !ok {
			log.Ctx(ctx).WarnContext(ctx, "failed to parse hydroquebec balance", slog.String("contract", e.Contract), slog.Any("value", e.Balance))
			continue
		}
		balances[e.Contract] = balance
	}
	return contracts, balances, nil
}

// getCurrent copies every numeric field of the first result's "courant" block
// into raw. It returns false if the resource had no results.
func (p *Portal) getCurrent(ctx context.Context, resource string, params url.Values, raw map[string]float64) (bool, error) {
	var entries []currentEntry
	if err := p.getResource(ctx, resource, params, &entries); err != nil {
		return false, err
	}
	if len(entries) == 0 {
		return false, nil
	}
	for k, v := range entries[0].Current {
		f, ok := parseValue(v)
		if !ok {
			continue
		}
		raw[k] = f
	}
	return true, nil
}

// parseValue accepts JSON numbers and numeric strings, including French
// decimal commas.
func parseValue(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(t), ",", ".", 1), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
