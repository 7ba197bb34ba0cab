package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/mgnrega-portal/internal/client"
	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/dashboard"
	"github.com/bobmcallan/mgnrega-portal/internal/views"
)

var toolNames = []string{"list_districts", "get_district_report", "locate_district", "get_version"}

// RegisterTools adds the district tools to s.
func RegisterTools(s *server.MCPServer, service Service) {
	s.AddTool(ListDistrictsTool(), ListDistrictsHandler(service))
	s.AddTool(DistrictReportTool(), DistrictReportHandler(service))
	s.AddTool(LocateDistrictTool(), LocateDistrictHandler(service))
	s.AddTool(VersionTool(), VersionToolHandler())
}

// ListDistrictsTool returns the list_districts tool definition.
func ListDistrictsTool() mcp.Tool {
	return mcp.NewTool("list_districts",
		mcp.WithDescription("List the districts with MGNREGA reports. Returns code and name for each district."),
	)
}

// ListDistrictsHandler returns the list_districts handler.
func ListDistrictsHandler(service Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list, fallback := service.Districts(ctx)
		return jsonResult(map[string]interface{}{
			"districts": list,
			"fallback":  fallback,
		})
	}
}

// DistrictReportTool returns the get_district_report tool definition.
func DistrictReportTool() mcp.Tool {
	return mcp.NewTool("get_district_report",
		mcp.WithDescription("Get the MGNREGA performance report of a district: headline metrics, month-on-month comparisons, plain-language summary and workdays trend."),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("District code, as returned by list_districts."),
		),
		mcp.WithString("month",
			mcp.Description("Report month as YYYY-MM. Defaults to the latest month."),
		),
	)
}

// reportView is the tool output of get_district_report.
type reportView struct {
	DistrictCode string           `json:"districtCode"`
	DistrictName string           `json:"districtName"`
	Month        string           `json:"month,omitempty"`
	Cards        []cardView       `json:"cards"`
	Summary      string           `json:"summary"`
	Trend        []trendPointView `json:"trend"`
	LastUpdated  string           `json:"lastUpdated"`
	Stale        bool             `json:"stale,omitempty"`
}

type cardView struct {
	Title  string `json:"title"`
	Value  string `json:"value"`
	Delta  string `json:"delta"`
	Status string `json:"status"`
}

type trendPointView struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// DistrictReportHandler returns the get_district_report handler. Values
// are formatted the way the dashboard shows them.
func DistrictReportHandler(service Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code := r.GetString("code", "")
		if code == "" {
			return errorResult("code is required"), nil
		}

		res := service.Load(ctx, code, r.GetString("month", ""))
		if res.State != dashboard.StateLoaded {
			if errors.Is(res.Err, client.ErrDistrictNotFound) {
				return errorResult("district not found: " + code), nil
			}
			return errorResult("report unavailable: " + errString(res.Err)), nil
		}

		report := res.Report
		out := reportView{
			DistrictCode: report.DistrictCode,
			DistrictName: report.DistrictName,
			Month:        report.Month,
			Summary:      views.InsightsText(report.Summary),
			LastUpdated:  common.FormatUpdated(report.LastUpdated),
			Stale:        report.Stale,
		}
		for _, c := range views.SummaryCards(report.Metrics, report.Comparisons) {
			status := string(c.Status)
			if status == "" {
				status = "neutral"
			}
			out.Cards = append(out.Cards, cardView{Title: c.Title, Value: c.Value, Delta: c.Delta, Status: status})
		}
		for _, p := range report.Trend {
			out.Trend = append(out.Trend, trendPointView{Month: p.Month, Value: p.Value})
		}
		return jsonResult(out)
	}
}

// LocateDistrictTool returns the locate_district tool definition.
func LocateDistrictTool() mcp.Tool {
	return mcp.NewTool("locate_district",
		mcp.WithDescription("Find the district containing a latitude/longitude."),
		mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude in decimal degrees.")),
		mcp.WithNumber("lon", mcp.Required(), mcp.Description("Longitude in decimal degrees.")),
	)
}

// LocateDistrictHandler returns the locate_district handler.
func LocateDistrictHandler(service Service) server.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lat, err := r.RequireFloat("lat")
		if err != nil {
			return errorResult("lat is required"), nil
		}
		lon, err := r.RequireFloat("lon")
		if err != nil {
			return errorResult("lon is required"), nil
		}

		code, err := service.Locate(ctx, lat, lon)
		switch {
		case err == nil:
			return jsonResult(map[string]string{"districtCode": code})
		case errors.Is(err, dashboard.ErrInvalidCoordinates):
			return errorResult(err.Error()), nil
		case errors.Is(err, client.ErrDistrictNotFound):
			return errorResult("no district found at this location"), nil
		default:
			return errorResult("locate failed: " + err.Error()), nil
		}
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return errorResult("failed to marshal result"), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(out))},
	}, nil
}

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
