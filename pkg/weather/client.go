package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL = "https://api.open-meteo.com"

	msgIncomplete = "Impossible d'obtenir les données météo pour le moment."
	msgFailure    = "Erreur lors de la récupération de la météo."

	cacheKey = "current"
)

// Client reads current conditions from Open-Meteo. Results are cached for
// the configured TTL and concurrent misses share one upstream request.
type Client struct {
	baseURL    string
	latitude   float64
	longitude  float64
	city       string
	httpClient *http.Client

	cache *cache.Cache
	group singleflight.Group
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Latitude  float64
	Longitude float64
	City      string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Client{
		baseURL:    opts.BaseURL,
		latitude:   opts.Latitude,
		longitude:  opts.Longitude,
		city:       opts.City,
		httpClient: &http.Client{Timeout: opts.Timeout},
		cache:      cache.New(ttl, 2*ttl),
	}
}

// Current returns the current conditions, from cache when fresh.
//
// The shared upstream request ignores caller cancellation and is bounded by
// the client timeout. Each caller stops waiting when its own ctx is done.
func (c *Client) Current(ctx context.Context) (*Conditions, error) {
	if x, found := c.cache.Get(cacheKey); found {
		return x.(*Conditions), nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(cacheKey, func() (interface{}, error) {
		// a flight that just finished may have filled the cache
		if x, found := c.cache.Get(cacheKey); found {
			return x, nil
		}
		cond, err := c.fetch(flightCtx)
		if err != nil {
			return nil, err
		}
		c.cache.Set(cacheKey, cond, cache.DefaultExpiration)
		return cond, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("weather request abandoned: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Conditions), nil
	}
}

func (c *Client) fetch(ctx context.Context) (*Conditions, error) {
	params := url.Values{}
	params.Add("latitude", strconv.FormatFloat(c.latitude, 'f', -1, 64))
	params.Add("longitude", strconv.FormatFloat(c.longitude, 'f', -1, 64))
	params.Add("current_weather", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/forecast?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("open-meteo returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse weather response: %w", err)
	}

	cw := payload.CurrentWeather
	if cw == nil || cw.Temperature == "" || cw.WindSpeed == "" {
		return nil, ErrIncompleteData
	}
	return &Conditions{City: c.city, Temperature: cw.Temperature, WindSpeed: cw.WindSpeed}, nil
}

// Value renders the current conditions as a French sentence.
func (c *Client) Value(ctx context.Context) (string, error) {
	cond, err := c.Current(ctx)
	if err != nil {
		return "", err
	}
	return Describe(cond), nil
}

// Degraded phrases a failure of Value for the end user.
func (c *Client) Degraded(err error) string {
	if errors.Is(err, ErrIncompleteData) {
		return msgIncomplete
	}
	return msgFailure
}

// Describe formats conditions the way the bot announces them.
func Describe(cond *Conditions) string {
	return fmt.Sprintf("Il fait actuellement %s°C à %s avec un vent de %s km/h.",
		cond.Temperature.String(), cond.City, cond.WindSpeed.String())
}
