package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/mgnrega-portal/internal/models"
)

// ErrDistrictNotFound is returned when the upstream API has no district
// for the requested code or coordinates.
var ErrDistrictNotFound = errors.New("district not found")

// maxResponseSize caps upstream response bodies (1MB).
const maxResponseSize = 1 << 20

// MGNREGAClient communicates with the upstream MGNREGA data API.
// It performs single GETs only: no retry, caching or backoff.
type MGNREGAClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewMGNREGAClient creates a client for baseURL (e.g. http://localhost:8080/api).
// A non-positive timeout defaults to 10 seconds.
func NewMGNREGAClient(baseURL string, timeout time.Duration) *MGNREGAClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MGNREGAClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the upstream base URL.
func (c *MGNREGAClient) BaseURL() string {
	return c.baseURL
}

// FetchDistricts lists all districts.
// GET {base}/districts -> [{code, name}, ...]
func (c *MGNREGAClient) FetchDistricts(ctx context.Context) ([]models.District, error) {
	body, err := c.get(ctx, "/districts")
	if err != nil {
		return nil, err
	}

	var districts []models.District
	if err := json.Unmarshal(body, &districts); err != nil {
		return nil, fmt.Errorf("failed to parse districts: %w", err)
	}
	return districts, nil
}

// FetchDistrictMetrics fetches the report for a district. An empty month
// means the latest period; otherwise month is YYYY-MM.
// GET {base}/district/{code}?month=YYYY-MM -> Report
func (c *MGNREGAClient) FetchDistrictMetrics(ctx context.Context, code, month string) (*models.Report, error) {
	path := "/district/" + url.PathEscape(code)
	if month != "" {
		path += "?month=" + url.QueryEscape(month)
	}

	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var report models.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("failed to parse district report: %w", err)
	}
	if report.DistrictCode == "" {
		report.DistrictCode = code
	}
	return &report, nil
}

// ReverseGeocode resolves coordinates to a district code.
// GET {base}/locate?lat={f}&lon={f} -> {districtCode}
func (c *MGNREGAClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	body, err := c.get(ctx, "/locate?"+q.Encode())
	if err != nil {
		return "", err
	}

	var result struct {
		DistrictCode string `json:"districtCode"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse locate response: %w", err)
	}
	if result.DistrictCode == "" {
		return "", ErrDistrictNotFound
	}
	return result.DistrictCode, nil
}

// Ping checks the upstream API is reachable.
func (c *MGNREGAClient) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/districts")
	return err
}

func (c *MGNREGAClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach mgnrega api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrDistrictNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mgnrega api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
