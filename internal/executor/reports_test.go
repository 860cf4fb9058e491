package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/duckmart/duckmart/internal/catalog"
	"github.com/duckmart/duckmart/internal/warehouse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs the shipped report catalog against a warehouse built from a minimal
// single-order scenario.
func TestShippedReports(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	dir := t.TempDir()
	fixtures := map[string]string{
		"customers.csv": "customer_id,name,country,signup_date\n1,Casey,US,2023-01-15\n",
		"products.csv":  "product_id,name,category,unit_price\n1,Widget,A,10.0\n",
		"orders.csv":    "order_id,customer_id,product_id,order_timestamp,status,quantity,unit_price\n1,1,1,2023-08-01 12:00:00,completed,2,10.0\n",
	}
	for name, content := range fixtures {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	pipeline := warehouse.New(db, warehouse.Config{RawDir: dir})
	_, err := pipeline.Run(ctx)
	require.NoError(t, err)

	cat, err := catalog.ParseFile(filepath.Join("..", "..", "reports", "queries.sql"))
	require.NoError(t, err)
	require.Equal(t, 8, cat.Len())

	exec := New(db, cat, nil)

	result, err := exec.Run(ctx, "revenue_last_30d_by_country")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "US", result.Rows[0]["country"])
	assert.InDelta(t, 20.0, result.Rows[0]["revenue"], 1e-9)
	assert.EqualValues(t, 1, result.Rows[0]["orders"])

	result, err = exec.Run(ctx, "avg_ticket_by_country")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.InDelta(t, 20.0, result.Rows[0]["avg_ticket"], 1e-9)
	assert.EqualValues(t, 1, result.Rows[0]["orders"])

	// Every shipped report must run clean against a freshly built mart.
	report := exec.RunAll(ctx, false)
	require.Len(t, report.Entries, cat.Len())
	assert.Empty(t, report.Failed(), "failed reports: %v", report.Failed())

	// And every shipped report must be explainable.
	report = exec.RunAll(ctx, true)
	assert.Empty(t, report.Failed())
	for _, entry := range report.Entries {
		assert.NotEmpty(t, entry.Result.Plan, "report %s produced no plan", entry.Name)
	}
}
