// Package views builds the view models rendered by the page templates.
package views

import (
	"github.com/bobmcallan/mgnrega-portal/internal/common"
	"github.com/bobmcallan/mgnrega-portal/internal/models"
)

// NoSummary is shown when a report has no summary text.
const NoSummary = "No summary available."

// Option is one entry of the district selector.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// SelectorOptions builds the district selector options, led by an empty
// prompt option. The option value is the district code, or its name
// when the code is empty.
func SelectorOptions(districts []models.District, selected string) []Option {
	opts := make([]Option, 0, len(districts)+1)
	opts = append(opts, Option{Value: "", Label: "-- choose district --", Selected: selected == ""})
	for _, d := range districts {
		id := d.ID()
		if id == "" {
			continue
		}
		label := d.Name
		if label == "" {
			label = id
		}
		opts = append(opts, Option{Value: id, Label: label, Selected: id == selected})
	}
	return opts
}

// Card is one headline metric tile.
type Card struct {
	Key    string
	Title  string
	Value  string
	Delta  string
	Status models.Status
}

// Class returns the CSS class for the card's delta line.
func (c Card) Class() string {
	return StatusClass(c.Status)
}

// StatusClass maps a comparison status to its display class.
func StatusClass(s models.Status) string {
	switch s {
	case models.StatusGood:
		return "status-good"
	case models.StatusBad:
		return "status-bad"
	default:
		return "status-neutral"
	}
}

// SummaryCards builds the headline cards in display order. The women
// participation card is appended only when that metric is present.
func SummaryCards(m models.MetricsSnapshot, c models.Comparisons) []Card {
	cards := []Card{
		newCard(models.MetricPeopleWorked, "Families worked", common.FormatNumber(m.PeopleWorked), c),
		newCard(models.MetricPersondays, "Total workdays", common.FormatNumber(m.Persondays), c),
		newCard(models.MetricAvgWage, "Avg wage / day", common.FormatRupees(m.AvgWage), c),
		newCard(models.MetricPaymentsPending, "Payments pending", common.FormatPercent(m.PaymentsPendingPercent), c),
	}
	if m.WomenPercent != nil {
		cards = append(cards, newCard(models.MetricWomenPercent, "Women participation", common.FormatPercent(m.WomenPercent), c))
	}
	return cards
}

func newCard(key, title, value string, c models.Comparisons) Card {
	cmp := c.Get(key)
	delta := cmp.DeltaText
	if delta == "" {
		delta = common.Placeholder
	}
	return Card{
		Key:    key,
		Title:  title,
		Value:  value,
		Delta:  delta,
		Status: cmp.Status,
	}
}

// InsightsText returns the summary to display.
func InsightsText(summary string) string {
	if summary == "" {
		return NoSummary
	}
	return summary
}
