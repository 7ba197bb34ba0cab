package dashboard

import (
	"context"

	"github.com/bobmcallan/mgnrega-portal/internal/client"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
)

// Source supplies district data to the dashboard service.
type Source interface {
	Districts(ctx context.Context) ([]models.District, error)
	Report(ctx context.Context, code, month string) (*models.Report, error)
	Locate(ctx context.Context, lat, lon float64) (string, error)
}

// APISource reads from the upstream MGNREGA API.
type APISource struct {
	client *client.MGNREGAClient
}

// NewAPISource wraps an API client as a Source.
func NewAPISource(c *client.MGNREGAClient) *APISource {
	return &APISource{client: c}
}

func (s *APISource) Districts(ctx context.Context) ([]models.District, error) {
	return s.client.FetchDistricts(ctx)
}

func (s *APISource) Report(ctx context.Context, code, month string) (*models.Report, error) {
	return s.client.FetchDistrictMetrics(ctx, code, month)
}

func (s *APISource) Locate(ctx context.Context, lat, lon float64) (string, error) {
	return s.client.ReverseGeocode(ctx, lat, lon)
}
