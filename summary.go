// Package energyagent turns household energy telemetry into trade decisions.
// It summarizes consumption or generation CSVs, asks an LLM for recommended
// time windows, and hands the chosen window to the DEG gateway client.
package energyagent

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var summaryTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadCSVSummary reads a two-column CSV (timestamp, kWh value) and renders
// the compact statistics block fed into the recommendation prompts: record
// count, date range, hourly average and peak day.
func LoadCSVSummary(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open data file %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return "", errors.Wrapf(err, "read header of %s", path)
	}
	if len(header) < 2 {
		return "", errors.Errorf("%s needs timestamp and value columns, got %d", path, len(header))
	}

	var (
		count      int
		valueSum   float64
		valueCount int
		minTime    time.Time
		maxTime    time.Time
		dailySums  = map[string]float64{}
	)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrapf(err, "read %s", path)
		}
		if len(row) < 2 {
			continue
		}
		count++

		value, valueErr := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if valueErr == nil {
			valueSum += value
			valueCount++
		}

		ts, tsErr := parseSummaryTime(row[0])
		if tsErr != nil {
			log.Warn().Str("timestamp", row[0]).Msg("energyagent: skipping unparseable timestamp")
			continue
		}
		if minTime.IsZero() || ts.Before(minTime) {
			minTime = ts
		}
		if maxTime.IsZero() || ts.After(maxTime) {
			maxTime = ts
		}
		if valueErr == nil {
			dailySums[ts.Format("2006-01-02")] += value
		}
	}
	if count == 0 {
		return "", errors.Errorf("%s holds no data rows", path)
	}

	var avg float64
	if valueCount > 0 {
		avg = valueSum / float64(valueCount)
	}
	peakDay, peakValue := peakOf(dailySums)

	summary := fmt.Sprintf(
		"Data loaded from %s.\n"+
			"Date range: %s to %s\n"+
			"Total records: %d\n"+
			"Average per hour: %.2f kWh\n"+
			"Peak day: %s with %.2f kWh",
		path,
		formatSummaryTime(minTime), formatSummaryTime(maxTime),
		count, avg, peakDay, peakValue)
	return summary, nil
}

func parseSummaryTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range summaryTimeLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized timestamp %q", raw)
}

func formatSummaryTime(ts time.Time) string {
	if ts.IsZero() {
		return "unknown"
	}
	return ts.Format("2006-01-02 15:04:05")
}

func peakOf(dailySums map[string]float64) (string, float64) {
	peakDay := "unknown"
	peakValue := 0.0
	first := true
	for day, total := range dailySums {
		if first || total > peakValue || (total == peakValue && day < peakDay) {
			peakDay = day
			peakValue = total
			first = false
		}
	}
	return peakDay, peakValue
}
