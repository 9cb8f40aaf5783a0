package formatter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"resource-planner/forecast"
	"resource-planner/models"
)

// Format is an output rendering.
type Format string

const (
	Text Format = "text"
	JSON Format = "json"
	CSV  Format = "csv"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case Text, JSON, CSV:
		return f, nil
	}
	return "", fmt.Errorf("format must be one of: text, json, csv (got: %s)", s)
}

// ForecastReport is a forecast with its per-period totals.
type ForecastReport struct {
	Buckets []models.ForecastBucket `json:"buckets"`
	Totals  []forecast.PeriodTotal  `json:"totals"`
}

// Render formats any result the planner produces.
func Render(f Format, v any) (string, error) {
	if f == JSON {
		return FormatJSON(v), nil
	}

	csvOut := f == CSV
	switch r := v.(type) {
	case []models.Conflict:
		if csvOut {
			return FormatConflictsCSV(r), nil
		}
		return FormatConflictsText(r), nil
	case *ForecastReport:
		if csvOut {
			return FormatForecastCSV(r.Buckets), nil
		}
		return FormatForecastText(r.Buckets), nil
	case *models.ScenarioComparison:
		if csvOut {
			return FormatComparisonCSV(r), nil
		}
		return FormatComparisonText(r), nil
	case *models.CriticalPathAnalysis:
		if csvOut {
			return FormatCriticalPathCSV(r), nil
		}
		return FormatCriticalPathText(r), nil
	case *models.CandidatePlan:
		if csvOut {
			return FormatPlanCSV(r), nil
		}
		return FormatPlanText(r), nil
	case []models.RunSummary:
		if csvOut {
			return FormatRunsCSV(r), nil
		}
		return FormatRunsText(r), nil
	}
	return "", fmt.Errorf("no %s rendering for %T", f, v)
}

// FormatJSON returns the indented JSON representation of v.
func FormatJSON(v any) string {
	jsonBytes, _ := json.MarshalIndent(v, "", "  ")
	return string(jsonBytes) + "\n"
}

// writeCSV renders a header and rows.
func writeCSV(header []string, rows [][]string) string {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)
	writer.Write(header)
	for _, row := range rows {
		writer.Write(row)
	}
	writer.Flush()
	return sb.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func day(t time.Time) string {
	return t.Format(time.DateOnly)
}

func skill(category string, level models.ExperienceLevel) string {
	return category + "/" + string(level)
}
