package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"txgather/internal/domain"
)

// Compile-time interface check.
var _ Session = (*BridgeClient)(nil)

// Credentials authenticate against the Shioaji bridge. The certificate is
// activated bridge-side as part of login; a login that cannot activate the
// certificate fails as a whole.
type Credentials struct {
	APIKey     string
	SecretKey  string
	CAPath     string
	CAPassword string
}

// BridgeClient implements Session over the bridge's HTTP API.
type BridgeClient struct {
	http          *resty.Client
	creds         Credentials
	driverVersion string
	log           *slog.Logger
}

// NewBridgeClient creates a client for the bridge at baseURL.
func NewBridgeClient(baseURL string, creds Credentials) *BridgeClient {
	httpc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Minute).
		SetRetryCount(0) // retry policy belongs to the fetch executor

	return &BridgeClient{
		http:  httpc,
		creds: creds,
		log:   slog.Default().With("component", "bridge"),
	}
}

// DriverVersion returns the Shioaji driver version reported by the last
// successful login, or "" before any login.
func (c *BridgeClient) DriverVersion() string { return c.driverVersion }

type loginResponse struct {
	DriverVersion string `json:"driver_version"`
	Usage         struct {
		Bytes      int64 `json:"bytes"`
		LimitBytes int64 `json:"limit_bytes"`
	} `json:"usage"`
}

// Login authenticates with the brokerage and activates the certificate. The
// bridge treats a login against a valid session as a token refresh, so the
// call is safe to repeat.
func (c *BridgeClient) Login(ctx context.Context) error {
	var out loginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"api_key":    c.creds.APIKey,
			"secret_key": c.creds.SecretKey,
			"ca_path":    c.creds.CAPath,
			"ca_passwd":  c.creds.CAPassword,
		}).
		SetResult(&out).
		Post("/login")
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("login: bridge returned %s: %s", resp.Status(), resp.String())
	}

	c.driverVersion = out.DriverVersion
	c.log.Info("logged in",
		"driverVersion", out.DriverVersion,
		"usageBytes", out.Usage.Bytes,
		"usageLimitBytes", out.Usage.LimitBytes,
	)
	return nil
}

type contractsResponse struct {
	Contracts []struct {
		Code         string `json:"code"`
		Name         string `json:"name"`
		DeliveryDate string `json:"delivery_date"` // "2006/01/02"
	} `json:"contracts"`
}

// Contracts fetches the futures contract catalog for the given root symbol.
func (c *BridgeClient) Contracts(ctx context.Context, symbol string) ([]domain.Contract, error) {
	var out contractsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetResult(&out).
		Get("/contracts/futures/{symbol}")
	if err != nil {
		return nil, fmt.Errorf("contracts request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("contracts: bridge returned %s: %s", resp.Status(), resp.String())
	}

	contracts := make([]domain.Contract, 0, len(out.Contracts))
	for _, rc := range out.Contracts {
		delivery, err := time.Parse("2006/01/02", rc.DeliveryDate)
		if err != nil {
			return nil, fmt.Errorf("contract %s: parsing delivery date %q: %w", rc.Code, rc.DeliveryDate, err)
		}
		contracts = append(contracts, domain.Contract{
			Code:         rc.Code,
			Name:         rc.Name,
			DeliveryDate: delivery,
		})
	}
	return contracts, nil
}

// ticksResponse mirrors the driver's columnar tick payload. Prices arrive as
// json.Number so no precision is lost on the way into decimal.
type ticksResponse struct {
	TS       []int64       `json:"ts"` // epoch nanoseconds
	Close    []json.Number `json:"close"`
	Volume   []int64       `json:"volume"`
	TickType []string      `json:"tick_type"` // may be absent entirely
}

// Ticks fetches all trade ticks for one contract on one calendar day. A day
// without trading returns nil, not an error.
func (c *BridgeClient) Ticks(ctx context.Context, contract domain.Contract, day time.Time) ([]domain.Tick, error) {
	var out ticksResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"contract":   contract.Code,
			"date":       day.Format("2006-01-02"),
			"query_type": "AllDay",
		}).
		SetResult(&out).
		Get("/ticks")
	if err != nil {
		return nil, fmt.Errorf("ticks request for %s on %s: %w", contract.Code, day.Format("2006-01-02"), err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ticks for %s on %s: bridge returned %s: %s",
			contract.Code, day.Format("2006-01-02"), resp.Status(), resp.String())
	}

	n := len(out.TS)
	if n == 0 {
		return nil, nil
	}
	if len(out.Close) != n || len(out.Volume) != n {
		return nil, fmt.Errorf("ticks for %s on %s: column lengths differ (ts=%d close=%d volume=%d)",
			contract.Code, day.Format("2006-01-02"), n, len(out.Close), len(out.Volume))
	}
	if len(out.TickType) != 0 && len(out.TickType) != n {
		return nil, fmt.Errorf("ticks for %s on %s: tick_type column length %d, want %d",
			contract.Code, day.Format("2006-01-02"), len(out.TickType), n)
	}

	ticks := make([]domain.Tick, 0, n)
	for i := 0; i < n; i++ {
		price, err := decimal.NewFromString(out.Close[i].String())
		if err != nil {
			return nil, fmt.Errorf("ticks for %s on %s: parsing price %q: %w",
				contract.Code, day.Format("2006-01-02"), out.Close[i], err)
		}
		tickType := domain.TickTypeDeal
		if len(out.TickType) == n && out.TickType[i] != "" {
			tickType = out.TickType[i]
		}
		ticks = append(ticks, domain.Tick{
			TS:       time.Unix(0, out.TS[i]).UTC(),
			Price:    price,
			Volume:   out.Volume[i],
			TickType: tickType,
		})
	}
	return ticks, nil
}

type kbarsResponse struct {
	TS     []int64       `json:"ts"` // epoch nanoseconds, minute-aligned
	Open   []json.Number `json:"open"`
	High   []json.Number `json:"high"`
	Low    []json.Number `json:"low"`
	Close  []json.Number `json:"close"`
	Volume []int64       `json:"volume"`
}

// KBars fetches broker-aggregated 1-minute bars for one contract over an
// inclusive date range.
func (c *BridgeClient) KBars(ctx context.Context, contract domain.Contract, start, end time.Time) ([]domain.Bar, error) {
	var out kbarsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"contract": contract.Code,
			"start":    start.Format("2006-01-02"),
			"end":      end.Format("2006-01-02"),
		}).
		SetResult(&out).
		Get("/kbars")
	if err != nil {
		return nil, fmt.Errorf("kbars request for %s: %w", contract.Code, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("kbars for %s: bridge returned %s: %s", contract.Code, resp.Status(), resp.String())
	}

	n := len(out.TS)
	if n == 0 {
		return nil, nil
	}
	if len(out.Open) != n || len(out.High) != n || len(out.Low) != n || len(out.Close) != n || len(out.Volume) != n {
		return nil, fmt.Errorf("kbars for %s: column lengths differ", contract.Code)
	}

	parse := func(col string, v json.Number) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("kbars for %s: parsing %s %q: %w", contract.Code, col, v, err)
		}
		return d, nil
	}

	bars := make([]domain.Bar, 0, n)
	for i := 0; i < n; i++ {
		open, err := parse("open", out.Open[i])
		if err != nil {
			return nil, err
		}
		high, err := parse("high", out.High[i])
		if err != nil {
			return nil, err
		}
		low, err := parse("low", out.Low[i])
		if err != nil {
			return nil, err
		}
		cls, err := parse("close", out.Close[i])
		if err != nil {
			return nil, err
		}
		bars = append(bars, domain.Bar{
			TS:     time.Unix(0, out.TS[i]).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  cls,
			Volume: out.Volume[i],
		})
	}
	return bars, nil
}
