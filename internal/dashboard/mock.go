package dashboard

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bobmcallan/mgnrega-portal/internal/client"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
)

//go:embed fixtures/sample_district.json
var sampleFixture []byte

// locateRadiusKm is the furthest a point may be from a fixture district
// centre and still resolve to it.
const locateRadiusKm = 150.0

// FixtureDistrict is a district with the centre used for mock locate.
type FixtureDistrict struct {
	Code string  `json:"code" yaml:"code"`
	Name string  `json:"name" yaml:"name"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lon  float64 `json:"lon" yaml:"lon"`
}

// Fixture is the mock data set. Default is served for any district
// without an entry in Reports.
type Fixture struct {
	Districts []FixtureDistrict        `json:"districts" yaml:"districts"`
	Default   models.Report            `json:"default" yaml:"default"`
	Reports   map[string]models.Report `json:"reports" yaml:"reports"`
}

// LoadFixture reads a fixture from a .json, .yaml or .yml file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}

	var fx Fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fx)
	default:
		err = json.Unmarshal(data, &fx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &fx, nil
}

// DefaultFixture returns the embedded sample fixture.
func DefaultFixture() *Fixture {
	var fx Fixture
	if err := json.Unmarshal(sampleFixture, &fx); err != nil {
		panic(fmt.Sprintf("embedded fixture is invalid: %v", err))
	}
	return &fx
}

// MockSource serves fixture data after a fixed delay, standing in for
// the API during development.
type MockSource struct {
	fixture *Fixture
	delay   time.Duration
}

// NewMockSource creates a mock source. A nil fixture uses the embedded sample.
func NewMockSource(fx *Fixture, delay time.Duration) *MockSource {
	if fx == nil {
		fx = DefaultFixture()
	}
	return &MockSource{fixture: fx, delay: delay}
}

func (m *MockSource) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *MockSource) Districts(ctx context.Context) ([]models.District, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	out := make([]models.District, len(m.fixture.Districts))
	for i, d := range m.fixture.Districts {
		out[i] = models.District{Code: d.Code, Name: d.Name}
	}
	return out, nil
}

func (m *MockSource) Report(ctx context.Context, code, month string) (*models.Report, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	report, ok := m.fixture.Reports[code]
	if !ok {
		report = m.fixture.Default
		report.DistrictName = m.districtName(code)
	}
	report.DistrictCode = code
	if month != "" {
		report.Month = month
	}
	report.Trend = append([]models.TrendPoint(nil), report.Trend...)
	return &report, nil
}

// districtName names code from the fixture district list, falling back
// to the code itself.
func (m *MockSource) districtName(code string) string {
	for _, d := range m.fixture.Districts {
		if (d.ID() == code || d.Code == code) && d.Name != "" {
			return d.Name
		}
	}
	return code
}

// Locate resolves to the nearest fixture district within locateRadiusKm.
func (m *MockSource) Locate(ctx context.Context, lat, lon float64) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	best := ""
	bestDist := math.MaxFloat64
	for _, d := range m.fixture.Districts {
		dist := distanceKm(lat, lon, d.Lat, d.Lon)
		if dist < bestDist {
			best, bestDist = d.ID(), dist
		}
	}
	if best == "" || bestDist > locateRadiusKm {
		return "", client.ErrDistrictNotFound
	}
	return best, nil
}

// ID returns the district's navigation identifier.
func (d FixtureDistrict) ID() string {
	return models.District{Code: d.Code, Name: d.Name}.ID()
}

// distanceKm is the great-circle distance between two points.
func distanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371.0

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
