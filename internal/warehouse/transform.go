package warehouse

// transform.go - dimensional transformation (staging -> mart)

import (
	"context"
	"database/sql"
	"fmt"
)

// TransformOutcome summarizes a transformation pass.
type TransformOutcome struct {
	OrphansDropped int64
	Relations      []string
}

const dimCustomersSQL = `
CREATE OR REPLACE TABLE mart.dim_customers AS
SELECT
    CAST(customer_id AS INTEGER) AS customer_id,
    name,
    country,
    CAST(signup_date AS DATE) AS signup_date
FROM staging.customers
QUALIFY ROW_NUMBER() OVER (PARTITION BY CAST(customer_id AS INTEGER) ORDER BY rowid) = 1`

const dimProductsSQL = `
CREATE OR REPLACE TABLE mart.dim_products AS
SELECT
    CAST(product_id AS INTEGER) AS product_id,
    name,
    category,
    CAST(unit_price AS DOUBLE) AS base_price
FROM staging.products
QUALIFY ROW_NUMBER() OVER (PARTITION BY CAST(product_id AS INTEGER) ORDER BY rowid) = 1`

// factOrdersSQL joins staging orders to both dimensions; orders whose
// customer or product key has no dimension row are dropped here, never
// carried with null keys. gross_revenue is derived in exactly one place.
const factOrdersSQL = `
CREATE OR REPLACE TABLE mart.fact_orders AS
SELECT
    CAST(o.order_id AS INTEGER) AS order_id,
    c.customer_id,
    p.product_id,
    CAST(o.order_timestamp AS TIMESTAMP) AS order_ts,
    LOWER(o.status) AS status,
    CAST(o.quantity AS INTEGER) AS quantity,
    CAST(o.unit_price AS DOUBLE) AS unit_price,
    CAST(o.quantity AS INTEGER) * CAST(o.unit_price AS DOUBLE) AS gross_revenue
FROM staging.orders o
JOIN mart.dim_customers c ON CAST(o.customer_id AS INTEGER) = c.customer_id
JOIN mart.dim_products p ON CAST(o.product_id AS INTEGER) = p.product_id
WHERE LOWER(o.status) NOT IN ('cancelled', 'refunded')`

const orphanCountSQL = `
SELECT COUNT(*)
FROM staging.orders o
LEFT JOIN mart.dim_customers c ON CAST(o.customer_id AS INTEGER) = c.customer_id
LEFT JOIN mart.dim_products p ON CAST(o.product_id AS INTEGER) = p.product_id
WHERE LOWER(o.status) NOT IN ('cancelled', 'refunded')
  AND (c.customer_id IS NULL OR p.product_id IS NULL)`

const metricsDailySQL = `
CREATE OR REPLACE TABLE mart.metrics_daily AS
SELECT
    CAST(order_ts AS DATE) AS order_date,
    SUM(gross_revenue) AS revenue,
    SUM(quantity) AS units,
    COUNT(*) AS orders,
    APPROX_QUANTILE(gross_revenue, 0.95) AS p95_revenue
FROM mart.fact_orders
GROUP BY 1`

// customerRollupsTemplate takes the segment boundary constants so the SQL
// CASE and ClassifySegment share one definition. Ranking ties are broken by
// customer_id to keep revenue_rank deterministic.
const customerRollupsTemplate = `
CREATE OR REPLACE TABLE mart.customer_rollups AS
SELECT
    customer_id,
    COUNT(*) AS order_count,
    SUM(gross_revenue) AS total_revenue,
    MIN(order_ts) AS first_order_ts,
    MAX(order_ts) AS last_order_ts,
    AVG(gross_revenue) AS avg_ticket,
    SUM(quantity) AS units,
    ROW_NUMBER() OVER (ORDER BY SUM(gross_revenue) DESC, customer_id) AS revenue_rank,
    DATE_DIFF('day', CAST(MAX(order_ts) AS DATE), (SELECT CAST(MAX(order_ts) AS DATE) FROM mart.fact_orders)) AS days_since_last,
    CASE
        WHEN DATE_DIFF('day', CAST(MAX(order_ts) AS DATE), (SELECT CAST(MAX(order_ts) AS DATE) FROM mart.fact_orders)) <= %d THEN 'active'
        WHEN DATE_DIFF('day', CAST(MAX(order_ts) AS DATE), (SELECT CAST(MAX(order_ts) AS DATE) FROM mart.fact_orders)) <= %d THEN 'warm'
        ELSE 'churn-risk'
    END AS segment
FROM mart.fact_orders
GROUP BY customer_id`

// martRelations lists the relations the transformer builds, in build order.
var martRelations = []string{
	"mart.dim_customers",
	"mart.dim_products",
	"mart.fact_orders",
	"mart.metrics_daily",
	"mart.customer_rollups",
}

// Transform reduces staging into the mart: deduplicated dimensions
// (first-seen-wins on the natural key), the fact relation with derived
// measures and referential integrity against the dimensions, and the derived
// rollup relations. All writes happen in one transaction so readers never
// observe a half-built mart. Afterwards the engine's statistics are
// refreshed.
func (p *Pipeline) Transform(ctx context.Context) (*TransformOutcome, error) {
	if p.phase != PhaseStaged {
		return nil, &PreconditionError{Operation: "transform", Need: PhaseStaged, Got: p.phase}
	}

	for _, src := range sources {
		relation := "staging." + src.Name
		ok, err := p.db.TableExists(ctx, relation)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("required staging relation %s is absent", relation)
		}
	}

	outcome := &TransformOutcome{Relations: martRelations}

	err := p.db.Tx(ctx, func(tx *sql.Tx) error {
		steps := []struct {
			relation string
			sql      string
		}{
			{"mart (schema)", "CREATE SCHEMA IF NOT EXISTS mart"},
			{"mart.dim_customers", dimCustomersSQL},
			{"mart.dim_products", dimProductsSQL},
			{"mart.fact_orders", factOrdersSQL},
			{"mart.metrics_daily", metricsDailySQL},
			{"mart.customer_rollups", fmt.Sprintf(customerRollupsTemplate, ActiveMaxDays, WarmMaxDays)},
		}

		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.sql); err != nil {
				return fmt.Errorf("failed to build %s: %w", step.relation, err)
			}
			p.logger.Debug("built relation", "relation", step.relation)
		}

		if err := tx.QueryRowContext(ctx, orphanCountSQL).Scan(&outcome.OrphansDropped); err != nil {
			return fmt.Errorf("failed to count orphan orders: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.OrphansDropped > 0 {
		p.logger.Warn("dropped orphan fact rows", "count", outcome.OrphansDropped)
	}

	// Refresh optimizer statistics so subsequent plans see the new tables.
	if err := p.db.Exec(ctx, "ANALYZE"); err != nil {
		return nil, fmt.Errorf("failed to refresh statistics: %w", err)
	}

	p.phase = PhaseReady
	p.logSegmentDistribution(ctx)

	return outcome, nil
}

// logSegmentDistribution classifies every customer's recency through
// ClassifySegment and logs the distribution. Purely informational.
func (p *Pipeline) logSegmentDistribution(ctx context.Context) {
	rows, err := p.db.Query(ctx, "SELECT days_since_last FROM mart.customer_rollups")
	if err != nil {
		p.logger.Debug("segment distribution unavailable", "error", err)
		return
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[Segment]int)
	for rows.Next() {
		var days int
		if err := rows.Scan(&days); err != nil {
			return
		}
		counts[ClassifySegment(days)]++
	}
	if err := rows.Err(); err != nil {
		return
	}

	p.logger.Info("customer segments",
		"active", counts[SegmentActive],
		"warm", counts[SegmentWarm],
		"churn_risk", counts[SegmentChurnRisk])
}
