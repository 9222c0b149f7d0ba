//go:build integration_pg
// +build integration_pg

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"trendsetl/internal/core/trend"
	"trendsetl/internal/platform/store"

	"cloud.google.com/go/civil"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "postgres",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, port.Port())
}

func TestWarehouse_Integration(t *testing.T) {
	dsn := startPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{AppName: "trendsetl-it", PG: store.PGConfig{Enabled: true, URL: dsn}})
	if err != nil {
		t.Fatalf("store open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	w, err := New(st.PG, "trends_data", 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	// no table yet: unknown watermark, everything loads
	wm, err := w.LatestDate(ctx)
	if err != nil || wm.Known {
		t.Fatalf("before first load: %v, %v", wm, err)
	}

	v := 10
	at := time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	recs := []trend.Record{
		{Date: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), Keyword: "futu", Score: &v, Market: "HK", GeoCode: "HK", ExtractedAt: at},
		{Date: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), Keyword: "futu", Market: "SG", GeoCode: "SG", ExtractedAt: at},
	}
	if n, err := w.Append(ctx, recs); err != nil || n != 2 {
		t.Fatalf("Append = %d, %v", n, err)
	}

	wm, err = w.LatestDate(ctx)
	if err != nil || wm != trend.At(civil.Date{Year: 2024, Month: 6, Day: 5}) {
		t.Fatalf("watermark = %v, %v", wm, err)
	}
	by, err := w.LatestByMarket(ctx)
	if err != nil || by["HK"].Day != 4 || by["SG"].Day != 5 {
		t.Fatalf("by market = %v, %v", by, err)
	}

	// additive DDL is idempotent on the second append
	if _, err := w.Append(ctx, recs[:1]); err != nil {
		t.Fatalf("second Append: %v", err)
	}
}
