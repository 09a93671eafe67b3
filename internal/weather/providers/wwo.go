package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/weatherhist/wwo-history/internal/weather"
)

const defaultBaseURL = "http://api.worldweatheronline.com/premium/v1/past-weather.ashx"

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoAPIKey     = errors.New("worldweatheronline api key is not configured")
	errNoHTTPClient = errors.New("http client not configured")
)

// WWOProvider implements the weather.Fetcher interface for the
// WorldWeatherOnline past-weather API. Each FetchRange call performs exactly
// one request; there is no retry, the only abort trigger is the client's
// timeout. A circuit breaker sheds requests after repeated failures.
type WWOProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewWWOProvider creates a WWO client on the shared HTTP client. An empty
// baseURL selects the production endpoint.
func NewWWOProvider(client *http.Client, apiKey, baseURL string) *WWOProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "worldweatheronline",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &WWOProvider{
		name:    "worldweatheronline",
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  client,
		circuit: cb,
	}
}

func (p *WWOProvider) Name() string {
	return p.name
}

// FetchRange requests one sub-interval of past weather for a city and returns
// the provider's per-day records in chronological order.
func (p *WWOProvider) FetchRange(ctx context.Context, city string, start, end time.Time, frequency int) ([]weather.DayRecord, error) {
	values := url.Values{}
	values.Set("q", city)
	values.Set("date", start.Format(weather.DateFormat))
	values.Set("enddate", end.Format(weather.DateFormat))
	values.Set("tp", strconv.Itoa(frequency))

	resp, err := p.do(ctx, values)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Data struct {
			Error []struct {
				Msg string `json:"msg"`
			} `json:"error"`
			Weather []weather.DayRecord `json:"weather"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Data.Error) > 0 {
		return nil, fmt.Errorf("provider error: %s", payload.Data.Error[0].Msg)
	}
	return payload.Data.Weather, nil
}

// Attributes discovers the weather attributes the API currently exposes by
// requesting a fixed two-day sample and collecting the keys of its astronomy
// and hourly blocks. Astronomy keys come first, each group sorted.
func (p *WWOProvider) Attributes(ctx context.Context) ([]string, error) {
	values := url.Values{}
	values.Set("q", "London")
	values.Set("date", "2020-01-01")
	values.Set("enddate", "2020-01-02")
	values.Set("tp", "1")

	resp, err := p.do(ctx, values)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Data struct {
			Weather []struct {
				Astronomy []map[string]json.RawMessage `json:"astronomy"`
				Hourly    []map[string]json.RawMessage `json:"hourly"`
			} `json:"weather"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Data.Weather) == 0 {
		return nil, errors.New("attribute discovery response contains no weather data")
	}

	day := payload.Data.Weather[len(payload.Data.Weather)-1]
	var attrs []string
	if len(day.Astronomy) > 0 {
		attrs = append(attrs, sortedKeys(day.Astronomy[0])...)
	}
	if len(day.Hourly) > 0 {
		attrs = append(attrs, sortedKeys(day.Hourly[0])...)
	}
	if len(attrs) == 0 {
		return nil, errors.New("attribute discovery response contains no astronomy or hourly data")
	}
	return attrs, nil
}

// do performs one GET against the past-weather endpoint with the common
// query parameters filled in, executed through the circuit breaker.
func (p *WWOProvider) do(ctx context.Context, values url.Values) (*http.Response, error) {
	if p.client == nil {
		return nil, errNoHTTPClient
	}
	if p.apiKey == "" {
		return nil, errNoAPIKey
	}

	values.Set("key", p.apiKey)
	values.Set("format", "json")

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	result, err := p.circuit.Execute(func() (interface{}, error) {
		resp, execErr := p.client.Do(req)
		if execErr != nil {
			return nil, execErr
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			return nil, errRateLimited
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, errServerError
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
