// Package export writes usage reports as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/claude-usage-analytics/internal/models"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json" or "csv" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json or csv)", s)
	}
}

// Document is the JSON export: the report without conversation internals.
type Document struct {
	GeneratedAt  time.Time               `json:"generatedAt"`
	AllTime      models.AllTimeStats     `json:"allTime"`
	Last14Days   models.PeriodStats      `json:"last14Days"`
	Today        models.DailyEntry       `json:"today"`
	DailyHistory []models.DailyEntry     `json:"dailyHistory"`
	Models       []models.ModelBreakdown `json:"models"`
	FunStats     models.FunStats         `json:"funStats"`
	Achievements []models.Achievement    `json:"achievements"`
}

// NewDocument selects the exported subset of r.
func NewDocument(r *models.UsageReport) Document {
	return Document{
		GeneratedAt:  r.GeneratedAt,
		AllTime:      r.AllTime,
		Last14Days:   r.Last14Days,
		Today:        r.Today,
		DailyHistory: r.DailyHistory,
		Models:       r.Models,
		FunStats:     r.FunStats,
		Achievements: r.Achievements,
	}
}

// Write encodes r to w in the given format.
func Write(w io.Writer, f Format, r *models.UsageReport) error {
	switch f {
	case FormatJSON:
		return JSON(w, r)
	case FormatCSV:
		return CSV(w, r)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// JSON writes the indented JSON document.
func JSON(w io.Writer, r *models.UsageReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(r)); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// CSV writes one row per history day with cost rounded to cents.
func CSV(w io.Writer, r *models.UsageReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "messages", "tokens", "cost"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, e := range r.DailyHistory {
		row := []string{
			e.Date,
			strconv.FormatInt(e.Messages, 10),
			strconv.FormatInt(e.Tokens, 10),
			FormatCost(e.Cost),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %s: %w", e.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatCost renders a dollar amount with exactly two decimals.
func FormatCost(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// DefaultFilename returns a dated file name for an export.
func DefaultFilename(f Format, now time.Time) string {
	return fmt.Sprintf("claude-usage-%s.%s", now.Format(models.DateLayout), f)
}
