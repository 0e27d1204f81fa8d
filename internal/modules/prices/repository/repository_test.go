package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"gasfinder-server/internal/migrate"
	"gasfinder-server/internal/modules/prices/types"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Every pooled connection to :memory: would get its own empty database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	if err := migrate.Run(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// clock is a settable time source for WithClock.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

var base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (PriceRepository, *clock) {
	t.Helper()
	clk := &clock{t: base}
	return NewRepository(setupTestDB(t), 24*time.Hour, WithClock(clk.now)), clk
}

func mustRecord(t *testing.T, repo PriceRepository, station string, price string, fuel types.FuelType) types.PriceObservation {
	t.Helper()
	obs, err := repo.RecordObservation(context.Background(), station, decimal.RequireFromString(price), fuel, types.SourceAPI)
	if err != nil {
		t.Fatalf("RecordObservation(%s, %s, %s): %v", station, price, fuel, err)
	}
	return obs
}

func TestRecordObservation_RoundTrip(t *testing.T) {
	repo, clk := newTestRepo(t)
	ctx := context.Background()

	obs := mustRecord(t, repo, "ChIJ-station-1", "3.49", types.FuelRegular)
	if obs.ID == "" {
		t.Fatal("RecordObservation returned empty id")
	}
	if !obs.ObservedAt.Equal(base) {
		t.Errorf("ObservedAt = %s, want %s", obs.ObservedAt, base)
	}

	got, err := repo.LatestObservation(ctx, "ChIJ-station-1", types.FuelRegular, clk.now())
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if got == nil {
		t.Fatal("LatestObservation = nil, want the recorded observation")
	}
	if got.ID != obs.ID || got.StationID != obs.StationID || got.FuelType != types.FuelRegular || got.Source != types.SourceAPI {
		t.Errorf("LatestObservation = %+v, want %+v", *got, obs)
	}
	if !got.Price.Equal(decimal.RequireFromString("3.49")) {
		t.Errorf("Price = %s, want 3.49", got.Price)
	}
	if !got.ObservedAt.Equal(obs.ObservedAt) {
		t.Errorf("ObservedAt = %s, want %s", got.ObservedAt, obs.ObservedAt)
	}
}

func TestLatestObservation_PicksNewest(t *testing.T) {
	repo, clk := newTestRepo(t)

	mustRecord(t, repo, "s1", "3.39", types.FuelRegular)
	clk.advance(time.Hour)
	newest := mustRecord(t, repo, "s1", "3.59", types.FuelRegular)
	clk.advance(time.Hour)

	got, err := repo.LatestObservation(context.Background(), "s1", types.FuelRegular, clk.now())
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if got == nil || got.ID != newest.ID {
		t.Fatalf("LatestObservation = %+v, want id %s", got, newest.ID)
	}
}

func TestLatestObservation_SameInstantPrefersLastInserted(t *testing.T) {
	repo, clk := newTestRepo(t)

	mustRecord(t, repo, "s1", "3.39", types.FuelRegular)
	second := mustRecord(t, repo, "s1", "3.45", types.FuelRegular)

	got, err := repo.LatestObservation(context.Background(), "s1", types.FuelRegular, clk.now())
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if got == nil || got.ID != second.ID {
		t.Fatalf("LatestObservation = %+v, want id %s", got, second.ID)
	}
}

func TestLatestObservation_ExactPairOnly(t *testing.T) {
	repo, clk := newTestRepo(t)
	ctx := context.Background()

	mustRecord(t, repo, "s1", "4.19", types.FuelDiesel)
	mustRecord(t, repo, "s2", "3.29", types.FuelRegular)

	tests := []struct {
		name    string
		station string
		fuel    types.FuelType
		want    string
	}{
		{name: "matching diesel", station: "s1", fuel: types.FuelDiesel, want: "4.19"},
		{name: "other fuel same station", station: "s1", fuel: types.FuelRegular},
		{name: "same fuel other station", station: "s2", fuel: types.FuelDiesel},
		{name: "unknown station", station: "nope", fuel: types.FuelRegular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.LatestObservation(ctx, tt.station, tt.fuel, clk.now())
			if err != nil {
				t.Fatalf("LatestObservation: %v", err)
			}
			if tt.want == "" {
				if got != nil {
					t.Fatalf("LatestObservation = %+v, want nil", got)
				}
				return
			}
			if got == nil || got.Price.String() != tt.want {
				t.Fatalf("LatestObservation = %+v, want price %s", got, tt.want)
			}
		})
	}
}

func TestLatestObservation_FreshnessWindow(t *testing.T) {
	repo, clk := newTestRepo(t)
	ctx := context.Background()

	mustRecord(t, repo, "s1", "3.49", types.FuelPremium)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    bool
	}{
		{name: "just recorded", elapsed: 0, want: true},
		{name: "inside window", elapsed: 23*time.Hour + 59*time.Minute, want: true},
		{name: "exactly window", elapsed: 24 * time.Hour, want: false},
		{name: "stale only row", elapsed: 25 * time.Hour, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.LatestObservation(ctx, "s1", types.FuelPremium, base.Add(tt.elapsed))
			if err != nil {
				t.Fatalf("LatestObservation: %v", err)
			}
			if (got != nil) != tt.want {
				t.Fatalf("LatestObservation at +%s = %+v, want present=%v", tt.elapsed, got, tt.want)
			}
		})
	}

	// Rows are never purged: the stale observation is still stored.
	clk.advance(48 * time.Hour)
	fresh := mustRecord(t, repo, "s1", "3.99", types.FuelPremium)
	got, err := repo.LatestObservation(ctx, "s1", types.FuelPremium, clk.now())
	if err != nil {
		t.Fatalf("LatestObservation: %v", err)
	}
	if got == nil || got.ID != fresh.ID {
		t.Fatalf("LatestObservation = %+v, want id %s", got, fresh.ID)
	}
}

func TestRecordObservation_RejectedByCheck(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.RecordObservation(context.Background(), "s1", decimal.RequireFromString("3.00"), types.FuelType("e85"), types.SourceAPI)
	if err == nil {
		t.Fatal("RecordObservation with unknown fuel type error = nil, want CHECK failure")
	}
}

func TestRecordObservation_ClosedDB(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, time.Hour)
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := repo.RecordObservation(context.Background(), "s1", decimal.RequireFromString("3.00"), types.FuelRegular, types.SourceAPI); err == nil {
		t.Fatal("RecordObservation on closed db error = nil, want error")
	}
	if _, err := repo.LatestObservation(context.Background(), "s1", types.FuelRegular, time.Now()); err == nil {
		t.Fatal("LatestObservation on closed db error = nil, want error")
	}
	if err := repo.Ping(context.Background()); err == nil {
		t.Fatal("Ping on closed db error = nil, want error")
	}
}

func TestPing(t *testing.T) {
	repo, _ := newTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
