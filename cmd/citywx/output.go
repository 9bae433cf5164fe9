package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lox/citywx/internal/alerts"
	"github.com/lox/citywx/internal/models"
	"github.com/lox/citywx/internal/rank"
	"github.com/lox/citywx/internal/weather"
)

func joinSources(ids []string) string {
	return strings.Join(ids, ", ")
}

func units(fahrenheit bool) (temp, wind string) {
	if fahrenheit {
		return "°F", "mph"
	}
	return "°C", "m/s"
}

func printConditions(w io.Writer, c weather.Conditions, fahrenheit bool) {
	printRecord(w, c.Record, c.Score, fahrenheit)
	printAlerts(w, c)
}

func printRecord(w io.Writer, r models.Record, score int, fahrenheit bool) {
	tempUnit, windUnit := units(fahrenheit)
	fmt.Fprintf(w, "%s (observed %s UTC, completeness %d/%d)\n", r.LocationName, r.ObservedAtText(), score, rank.MaxScore)
	fmt.Fprintf(w, "  Temperature: %s\n", floatOr(r.Temperature.Valid, r.Temperature.Float64, tempUnit))
	fmt.Fprintf(w, "  Feels like:  %s\n", floatOr(r.FeelsLike.Valid, r.FeelsLike.Float64, tempUnit))
	humidity := "n/a"
	if r.Humidity.Valid {
		humidity = fmt.Sprintf("%d%%", r.Humidity.Int64)
	}
	fmt.Fprintf(w, "  Humidity:    %s\n", humidity)
	fmt.Fprintf(w, "  Conditions:  %s\n", describe(r))
	fmt.Fprintf(w, "  Wind speed:  %s\n", floatOr(r.WindSpeed.Valid, r.WindSpeed.Float64, " "+windUnit))
}

func floatOr(ok bool, v float64, unit string) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%s", v, unit)
}

func describe(r models.Record) string {
	if !r.Description.Valid || r.Description.String == "" {
		return "n/a"
	}
	return r.Description.String
}

func printAlerts(w io.Writer, c weather.Conditions) {
	res := c.Alerts
	switch res.Status() {
	case alerts.StatusAllClear:
		fmt.Fprintln(w, "No active weather alerts.")
	case alerts.StatusActive:
		fmt.Fprintln(w, "Alerts:")
		for _, a := range res.Alerts {
			fmt.Fprintf(w, "  - %s: %s\n", a.Name, a.Message())
		}
	}
	for _, cat := range res.Skipped {
		fmt.Fprintf(w, "%s alerts skipped: insufficient data\n", capitalize(string(cat)))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func printComparison(w io.Writer, cmp weather.Comparison, fahrenheit bool) {
	fmt.Fprintf(w, "Weather comparison: %s vs %s\n", cmp.A.City, cmp.B.City)
	tempUnit, windUnit := units(fahrenheit)
	a, b := cmp.A.Record, cmp.B.Record
	rows := []struct {
		label string
		a, b  string
	}{
		{"Temperature", floatOr(a.Temperature.Valid, a.Temperature.Float64, tempUnit), floatOr(b.Temperature.Valid, b.Temperature.Float64, tempUnit)},
		{"Feels like", floatOr(a.FeelsLike.Valid, a.FeelsLike.Float64, tempUnit), floatOr(b.FeelsLike.Valid, b.FeelsLike.Float64, tempUnit)},
		{"Humidity", intOr(a.Humidity.Valid, a.Humidity.Int64), intOr(b.Humidity.Valid, b.Humidity.Int64)},
		{"Wind speed", floatOr(a.WindSpeed.Valid, a.WindSpeed.Float64, " "+windUnit), floatOr(b.WindSpeed.Valid, b.WindSpeed.Float64, " "+windUnit)},
	}
	for i, row := range rows {
		marker := ""
		if i < len(cmp.Fields) && cmp.Fields[i].Marker != "" {
			marker = "  (" + cmp.Fields[i].Marker + ")"
		}
		fmt.Fprintf(w, "  %-12s %-12s %-12s%s\n", row.label, row.a, row.b, marker)
	}
	fmt.Fprintln(w)
	for _, line := range cmp.Summary {
		fmt.Fprintln(w, line)
	}
}

func intOr(ok bool, v int64) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", v)
}

func printImportSummary(w io.Writer, sum weather.ImportSummary) {
	fmt.Fprintf(w, "Imported %d of %d rows from %s (%d rejected)\n",
		sum.Stored, sum.Parsed+sum.Rejected, sum.Source, sum.Rejected)
	for _, rej := range sum.Rejects {
		fmt.Fprintf(w, "  line %d: %v\n", rej.Line, rej.Err)
	}
	if sum.Rejected > len(sum.Rejects) {
		fmt.Fprintf(w, "  ... %d more\n", sum.Rejected-len(sum.Rejects))
	}
}

func printRuns(w io.Writer, runs []models.IngestRun) {
	for _, r := range runs {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		fmt.Fprintf(w, "%s  %s  %-13s %-6s stored=%d errors=%d  %s\n",
			r.StartedAt.UTC().Format(time.RFC3339), r.RunUUID, r.Source, status,
			r.RecordsStored.Int64, r.ParseErrors.Int64, r.Origin)
		if r.ErrorMessage.Valid {
			fmt.Fprintf(w, "    %s\n", r.ErrorMessage.String)
		}
	}
}
