package api

import (
	"time"

	"github.com/lox/citywx/internal/alerts"
	"github.com/lox/citywx/internal/models"
	"github.com/lox/citywx/internal/rank"
	"github.com/lox/citywx/internal/weather"
)

// RecordView is the JSON form of a record. Missing readings are null.
type RecordView struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Temperature  *float64 `json:"temperature"`
	FeelsLike    *float64 `json:"feels_like"`
	Humidity     *int64   `json:"humidity"`
	Description  *string  `json:"description"`
	WindSpeed    *float64 `json:"wind_speed"`
	ObservedAt   string   `json:"observed_at"`
	Source       string   `json:"source,omitempty"`
	QualityFlags []string `json:"quality_flags,omitempty"`
}

func newRecordView(r models.Record) RecordView {
	v := RecordView{
		ID:           r.ID,
		Name:         r.LocationName,
		ObservedAt:   r.ObservedAtText(),
		Source:       r.Source,
		QualityFlags: r.QualityFlags,
	}
	if r.Temperature.Valid {
		v.Temperature = &r.Temperature.Float64
	}
	if r.FeelsLike.Valid {
		v.FeelsLike = &r.FeelsLike.Float64
	}
	if r.Humidity.Valid {
		v.Humidity = &r.Humidity.Int64
	}
	if r.Description.Valid {
		v.Description = &r.Description.String
	}
	if r.WindSpeed.Valid {
		v.WindSpeed = &r.WindSpeed.Float64
	}
	return v
}

type AlertView struct {
	Name      string          `json:"name"`
	Category  alerts.Category `json:"category"`
	Value     float64         `json:"value"`
	Threshold float64         `json:"threshold"`
	Unit      string          `json:"unit"`
	Message   string          `json:"message"`
}

// ConditionsView is the response for current conditions and alerts.
type ConditionsView struct {
	City     string            `json:"city"`
	Record   RecordView        `json:"record"`
	Score    int               `json:"score"`
	MaxScore int               `json:"max_score"`
	Status   alerts.Status     `json:"alert_status"`
	Alerts   []AlertView       `json:"alerts"`
	Skipped  []alerts.Category `json:"skipped,omitempty"`
}

func newConditionsView(c weather.Conditions) ConditionsView {
	v := ConditionsView{
		City:     c.City,
		Record:   newRecordView(c.Record),
		Score:    c.Score,
		MaxScore: rank.MaxScore,
		Status:   c.Alerts.Status(),
		Alerts:   make([]AlertView, 0, len(c.Alerts.Alerts)),
		Skipped:  c.Alerts.Skipped,
	}
	for _, a := range c.Alerts.Alerts {
		v.Alerts = append(v.Alerts, AlertView{
			Name:      a.Name,
			Category:  a.Category,
			Value:     a.Value,
			Threshold: a.Threshold,
			Unit:      a.Unit,
			Message:   a.Message(),
		})
	}
	return v
}

type ComparisonView struct {
	A       ConditionsView    `json:"a"`
	B       ConditionsView    `json:"b"`
	Fields  map[string]string `json:"fields"`
	Summary []string          `json:"summary"`
}

func newComparisonView(c weather.Comparison) ComparisonView {
	v := ComparisonView{
		A:       newConditionsView(c.A),
		B:       newConditionsView(c.B),
		Fields:  make(map[string]string, len(c.Fields)),
		Summary: c.Summary,
	}
	for _, f := range c.Fields {
		v.Fields[f.Field] = f.Marker
	}
	return v
}

type RankedView struct {
	Score  int        `json:"score"`
	Record RecordView `json:"record"`
}

type CitiesView struct {
	Count  int      `json:"count"`
	Cities []string `json:"cities"`
}

type StatsView struct {
	TotalRecords           int     `json:"total_records"`
	UniqueCities           int     `json:"unique_cities"`
	FeelsLikeRecords       int     `json:"feels_like_records"`
	CompletenessPercentage float64 `json:"completeness_percentage"`
}

// RunView is one fetch or import audit row.
type RunView struct {
	RunUUID       string     `json:"run_uuid"`
	Source        string     `json:"source"`
	Origin        string     `json:"origin"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
	HTTPStatus    *int64     `json:"http_status,omitempty"`
	RecordsParsed int64      `json:"records_parsed"`
	RecordsStored int64      `json:"records_stored"`
	ParseErrors   int64      `json:"parse_errors"`
	Success       bool       `json:"success"`
	Error         string     `json:"error,omitempty"`
}

func newRunView(run models.IngestRun) RunView {
	v := RunView{
		RunUUID:       run.RunUUID,
		Source:        run.Source,
		Origin:        run.Origin,
		StartedAt:     run.StartedAt,
		RecordsParsed: run.RecordsParsed.Int64,
		RecordsStored: run.RecordsStored.Int64,
		ParseErrors:   run.ParseErrors.Int64,
		Success:       run.Success,
		Error:         run.ErrorMessage.String,
	}
	if run.FinishedAt.Valid {
		v.FinishedAt = &run.FinishedAt.Time
	}
	if run.HTTPStatus.Valid {
		v.HTTPStatus = &run.HTTPStatus.Int64
	}
	return v
}
