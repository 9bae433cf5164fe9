package store

import (
	"bytes"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/lox/citywx/internal/ingest"
	"github.com/lox/citywx/internal/models"
)

var testNow = time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)

func setupTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	clock := clockwork.NewFakeClockAt(testNow)
	store := New(db, clock, zap.NewNop())
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store, clock
}

func observed(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := models.ParseObservedAt(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func mustAppend(t *testing.T, s *Store, r models.Record) models.Record {
	t.Helper()
	got, err := s.AppendRecord(r)
	if err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}
	return got
}

func TestMigrate_Idempotent(t *testing.T) {
	store, _ := setupTestStore(t)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}
}

func TestAppendAndQueryRecords(t *testing.T) {
	store, _ := setupTestStore(t)

	in := models.Record{
		LocationName: "Chicago",
		Temperature:  models.Float(31.5),
		FeelsLike:    models.Float(24),
		Humidity:     models.Int(0),
		Description:  models.String("light snow"),
		ObservedAt:   observed(t, "2024-01-01 00:00:00"),
		Source:       ingest.SourceExtendedCSV,
		QualityFlags: []string{ingest.FlagWindSpeedNegative},
	}
	got := mustAppend(t, store, in)
	if got.ID == 0 {
		t.Fatal("ID not assigned")
	}
	if !got.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, testNow)
	}

	records, err := store.RecordsByLocation("chicago")
	if err != nil {
		t.Fatalf("RecordsByLocation: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	r := records[0]
	if r.LocationName != "Chicago" {
		t.Errorf("LocationName = %q, want Chicago", r.LocationName)
	}
	if !r.Humidity.Valid || r.Humidity.Int64 != 0 {
		t.Errorf("Humidity = %+v, want present 0", r.Humidity)
	}
	if r.WindSpeed.Valid {
		t.Errorf("WindSpeed = %+v, want missing", r.WindSpeed)
	}
	if r.ObservedAtText() != "2024-01-01 00:00:00" {
		t.Errorf("ObservedAt = %q", r.ObservedAtText())
	}
	if r.Source != ingest.SourceExtendedCSV {
		t.Errorf("Source = %q", r.Source)
	}
	if len(r.QualityFlags) != 1 || r.QualityFlags[0] != ingest.FlagWindSpeedNegative {
		t.Errorf("QualityFlags = %v", r.QualityFlags)
	}
	if !r.CreatedAt.Equal(testNow) {
		t.Errorf("stored CreatedAt = %v, want %v", r.CreatedAt, testNow)
	}
}

func TestAppendRecord_RejectsIncomplete(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.AppendRecord(models.Record{LocationName: "  ", ObservedAt: testNow})
	if !errors.Is(err, ingest.ErrMissingLocation) {
		t.Errorf("blank name err = %v, want ErrMissingLocation", err)
	}
	_, err = store.AppendRecord(models.Record{LocationName: "Boston"})
	if !errors.Is(err, ingest.ErrUnparseableTimestamp) {
		t.Errorf("zero time err = %v, want ErrUnparseableTimestamp", err)
	}
}

func TestAppendRecord_RejectsUnreadableTimestamp(t *testing.T) {
	store, _ := setupTestStore(t)

	if _, err := store.AppendRecord(models.Record{LocationName: "Boston", ObservedAt: testNow, Temperature: models.Float(70)}); err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}

	for _, ts := range []time.Time{
		time.Unix(253402300800, 0).UTC(),
		time.Date(0, 6, 1, 0, 0, 0, 0, time.UTC),
	} {
		_, err := store.AppendRecord(models.Record{LocationName: "Boston", ObservedAt: ts})
		if !errors.Is(err, ingest.ErrUnparseableTimestamp) {
			t.Errorf("AppendRecord(%v) err = %v, want ErrUnparseableTimestamp", ts, err)
		}
	}

	records, err := store.RecordsByLocation("Boston")
	if err != nil {
		t.Fatalf("RecordsByLocation: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("len(records) = %d, want 1", len(records))
	}
}

func TestRecordsByLocation_Unknown(t *testing.T) {
	store, _ := setupTestStore(t)

	records, err := store.RecordsByLocation("Nowhere")
	if err != nil {
		t.Fatalf("RecordsByLocation: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestMostRecentLocation(t *testing.T) {
	store, _ := setupTestStore(t)

	if _, err := store.MostRecentLocation(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store err = %v, want ErrNotFound", err)
	}

	mustAppend(t, store, models.Record{LocationName: "Miami", ObservedAt: observed(t, "2024-05-02 10:00:00")})
	mustAppend(t, store, models.Record{LocationName: "Denver", ObservedAt: observed(t, "2024-05-01 10:00:00")})

	name, err := store.MostRecentLocation()
	if err != nil {
		t.Fatalf("MostRecentLocation: %v", err)
	}
	if name != "Miami" {
		t.Errorf("name = %q, want Miami", name)
	}
}

func TestLatestRecord(t *testing.T) {
	store, _ := setupTestStore(t)

	if _, err := store.LatestRecord("Seattle"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	mustAppend(t, store, models.Record{LocationName: "Seattle", Temperature: models.Float(50), ObservedAt: observed(t, "2024-02-01 00:00:00")})
	want := mustAppend(t, store, models.Record{LocationName: "Seattle", Temperature: models.Float(44), ObservedAt: observed(t, "2024-02-03 00:00:00")})
	mustAppend(t, store, models.Record{LocationName: "Seattle", Temperature: models.Float(47), ObservedAt: observed(t, "2024-02-02 00:00:00")})

	got, err := store.LatestRecord("SEATTLE")
	if err != nil {
		t.Fatalf("LatestRecord: %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("ID = %d, want %d", got.ID, want.ID)
	}
}

func TestLocationsAndStats(t *testing.T) {
	store, _ := setupTestStore(t)

	mustAppend(t, store, models.Record{LocationName: "Phoenix", FeelsLike: models.Float(101), ObservedAt: testNow})
	mustAppend(t, store, models.Record{LocationName: "phoenix", ObservedAt: testNow})
	mustAppend(t, store, models.Record{LocationName: "Dallas", ObservedAt: testNow})
	mustAppend(t, store, models.Record{LocationName: "Boston", FeelsLike: models.Float(20), ObservedAt: testNow})

	names, err := store.Locations()
	if err != nil {
		t.Fatalf("Locations: %v", err)
	}
	if strings.Join(names, ",") != "Boston,Dallas,Phoenix" {
		t.Errorf("Locations = %v", names)
	}

	count, err := store.LocationCount()
	if err != nil {
		t.Fatalf("LocationCount: %v", err)
	}
	if count != 3 {
		t.Errorf("LocationCount = %d, want 3", count)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := models.Stats{TotalRecords: 4, UniqueCities: 3, FeelsLikeRecords: 2, CompletenessPercentage: 50}
	if stats != want {
		t.Errorf("Stats = %+v, want %+v", stats, want)
	}
}

func TestStats_Empty(t *testing.T) {
	store, _ := setupTestStore(t)

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats != (models.Stats{}) {
		t.Errorf("Stats = %+v, want zero", stats)
	}
}

func TestExportCSV_RoundTripsThroughReferenceLayout(t *testing.T) {
	store, _ := setupTestStore(t)

	mustAppend(t, store, models.Record{
		LocationName: "New York",
		Temperature:  models.Float(72.5),
		FeelsLike:    models.Float(74),
		Humidity:     models.Int(55),
		Description:  models.String("scattered clouds, light breeze"),
		WindSpeed:    models.Float(8.2),
		ObservedAt:   observed(t, "2024-06-01 15:00:00"),
	})
	mustAppend(t, store, models.Record{LocationName: "Boston", ObservedAt: observed(t, "2024-06-02 15:00:00")})

	var buf bytes.Buffer
	n, err := store.ExportCSV(&buf)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "id,name,temp,feels_like,humidity,description,speed,dt" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != "2,Boston,,,,,,2024-06-02 15:00:00" {
		t.Errorf("sparse row = %q", lines[2])
	}

	imp, err := ingest.DefaultRegistry().Importer(ingest.SourceReferenceCSV)
	if err != nil {
		t.Fatalf("Importer: %v", err)
	}
	var got []models.Record
	for res := range imp.Rows(&buf) {
		if res.Err != nil {
			t.Fatalf("line %d: %v", res.Line, res.Err)
		}
		got = append(got, res.Record)
	}
	if len(got) != 2 {
		t.Fatalf("reimported %d records, want 2", len(got))
	}
	if got[0].Description.String != "scattered clouds, light breeze" || got[0].WindSpeed.Float64 != 8.2 {
		t.Errorf("reimported = %+v", got[0])
	}
	if got[1].Temperature.Valid {
		t.Errorf("missing temperature came back as %+v", got[1].Temperature)
	}
}

func TestIngestRunLifecycle(t *testing.T) {
	store, clock := setupTestStore(t)

	run, err := store.StartIngestRun("run-1", ingest.SourceOpenWeather, "Boston")
	if err != nil {
		t.Fatalf("StartIngestRun: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("run ID not assigned")
	}

	clock.Advance(2 * time.Second)
	run.HTTPStatus = sql.NullInt64{Int64: 200, Valid: true}
	run.RecordsParsed = sql.NullInt64{Int64: 1, Valid: true}
	run.RecordsStored = sql.NullInt64{Int64: 1, Valid: true}
	run.ParseErrors = sql.NullInt64{Int64: 0, Valid: true}
	run.Success = true
	if err := store.CompleteIngestRun(run); err != nil {
		t.Fatalf("CompleteIngestRun: %v", err)
	}

	got, err := store.GetIngestRun("run-1")
	if err != nil {
		t.Fatalf("GetIngestRun: %v", err)
	}
	if !got.Success || got.RecordsStored.Int64 != 1 || got.Origin != "Boston" {
		t.Errorf("run = %+v", got)
	}
	if !got.FinishedAt.Valid || got.FinishedAt.Time.Sub(got.StartedAt) != 2*time.Second {
		t.Errorf("FinishedAt = %+v, StartedAt = %v", got.FinishedAt, got.StartedAt)
	}

	if _, err := store.GetIngestRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing run err = %v, want ErrNotFound", err)
	}

	runs, err := store.RecentIngestRuns(10)
	if err != nil {
		t.Fatalf("RecentIngestRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("len(runs) = %d, want 1", len(runs))
	}

	if err := store.CompleteIngestRun(nil); err != nil {
		t.Errorf("CompleteIngestRun(nil) = %v", err)
	}
}

func TestRawPayloads(t *testing.T) {
	store, _ := setupTestStore(t)

	run, err := store.StartIngestRun("run-2", ingest.SourceOpenWeather, "Dallas")
	if err != nil {
		t.Fatalf("StartIngestRun: %v", err)
	}

	payload := []byte(`{"name":"Dallas","main":{"temp":99.1}}`)
	id, err := store.StoreRawPayload(run.ID, ingest.SourceOpenWeather, "Dallas", payload)
	if err != nil {
		t.Fatalf("StoreRawPayload: %v", err)
	}
	if id == 0 {
		t.Fatal("expected payload ID")
	}

	dup, err := store.StoreRawPayload(run.ID, ingest.SourceOpenWeather, "Dallas", payload)
	if err != nil {
		t.Fatalf("StoreRawPayload duplicate: %v", err)
	}
	if dup != 0 {
		t.Errorf("duplicate ID = %d, want 0", dup)
	}

	got, err := store.GetRawPayload(id)
	if err != nil {
		t.Fatalf("GetRawPayload: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %s, want %s", got, payload)
	}

	count, err := store.RawPayloadCount()
	if err != nil {
		t.Fatalf("RawPayloadCount: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	if _, err := store.GetRawPayload(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing payload err = %v, want ErrNotFound", err)
	}
}
