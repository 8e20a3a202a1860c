package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"greencircuit/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies *.sql files from dir in lexical order (dev helper).
func (p *Postgres) MigrateDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(b)); err != nil {
			return err
		}
	}
	return nil
}

func toJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func (p *Postgres) CreateDataset(ctx context.Context, tenantID, name string, records []model.LocationRecord) (model.Dataset, error) {
	d := model.Dataset{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      name,
		Rows:      len(records),
		CreatedAt: nowRFC3339(),
		Records:   records,
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO datasets (id, tenant_id, name, row_count, records, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		d.ID, tenantID, nullIfEmpty(name), d.Rows, toJSON(records), d.CreatedAt)
	if err != nil {
		return model.Dataset{}, err
	}
	return d, nil
}

func (p *Postgres) GetDataset(ctx context.Context, tenantID, id string) (model.Dataset, error) {
	var d model.Dataset
	var name sql.NullString
	var records []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, name, row_count, records, created_at FROM datasets WHERE tenant_id=$1 AND id=$2`,
		tenantID, id).Scan(&d.ID, &name, &d.Rows, &records, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Dataset{}, ErrNotFound
	}
	if err != nil {
		return model.Dataset{}, err
	}
	d.TenantID = tenantID
	d.Name = name.String
	if err := json.Unmarshal(records, &d.Records); err != nil {
		return model.Dataset{}, err
	}
	return d, nil
}

func (p *Postgres) ListDatasets(ctx context.Context, tenantID, cursor string, limit int) ([]model.DatasetSummary, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, name, row_count, created_at FROM datasets WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`,
			tenantID, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx,
			`SELECT id::text, name, row_count, created_at FROM datasets WHERE tenant_id=$1 ORDER BY id LIMIT $2`,
			tenantID, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.DatasetSummary{}
	var last string
	for rows.Next() {
		var d model.DatasetSummary
		var name sql.NullString
		if err := rows.Scan(&d.ID, &name, &d.Rows, &d.CreatedAt); err != nil {
			return nil, "", err
		}
		d.Name = name.String
		out = append(out, d)
		last = d.ID
	}
	next := ""
	if len(out) == limit {
		next = last
	}
	return out, next, rows.Err()
}

func (p *Postgres) SaveCircuit(ctx context.Context, c model.Circuit) (model.Circuit, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == "" {
		c.CreatedAt = nowRFC3339()
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO circuits (id, tenant_id, dataset_id, points, visit_order, stops, total_length, baseline_length, mean_pollution, mean_traffic, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		c.ID, c.TenantID, c.DatasetID, c.Points, toJSON(c.Order), toJSON(c.Stops),
		c.TotalLength, c.BaselineLength, c.MeanPollution, c.MeanTraffic, c.CreatedAt)
	if err != nil {
		return model.Circuit{}, err
	}
	return c, nil
}

func (p *Postgres) GetCircuit(ctx context.Context, tenantID, id string) (model.Circuit, error) {
	var c model.Circuit
	var order, stops []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT id::text, dataset_id::text, points, visit_order, stops, total_length, baseline_length, mean_pollution, mean_traffic, created_at
		 FROM circuits WHERE tenant_id=$1 AND id=$2`,
		tenantID, id).Scan(&c.ID, &c.DatasetID, &c.Points, &order, &stops,
		&c.TotalLength, &c.BaselineLength, &c.MeanPollution, &c.MeanTraffic, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Circuit{}, ErrNotFound
	}
	if err != nil {
		return model.Circuit{}, err
	}
	c.TenantID = tenantID
	if err := json.Unmarshal(order, &c.Order); err != nil {
		return model.Circuit{}, err
	}
	if err := json.Unmarshal(stops, &c.Stops); err != nil {
		return model.Circuit{}, err
	}
	return c, nil
}

func (p *Postgres) ListCircuits(ctx context.Context, tenantID, datasetID, cursor string, limit int) ([]model.Circuit, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT id::text FROM circuits WHERE tenant_id=$1`
	args := []any{tenantID}
	if datasetID != "" {
		q += ` AND dataset_id=$2`
		args = append(args, datasetID)
	}
	if cursor != "" {
		q += ` AND id::text > $` + strconv.Itoa(len(args)+1)
		args = append(args, cursor)
	}
	q += ` ORDER BY id LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit)
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, "", err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	out := make([]model.Circuit, 0, len(ids))
	for _, id := range ids {
		c, err := p.GetCircuit(ctx, tenantID, id)
		if err != nil {
			return nil, "", err
		}
		out = append(out, c)
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	sub := model.Subscription{
		ID:       uuid.New().String(),
		TenantID: req.TenantID,
		URL:      req.URL,
		Events:   req.Events,
		Secret:   req.Secret,
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`,
		sub.ID, sub.TenantID, sub.URL, toJSON(sub.Events), sub.Secret)
	if err != nil {
		return model.Subscription{}, err
	}
	return sub, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	subs, err := p.ListSubscriptions(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := []model.Subscription{}
	for _, sub := range subs {
		for _, e := range sub.Events {
			if e == eventType || e == "*" {
				out = append(out, sub)
				break
			}
		}
	}
	return out, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, url, events, secret FROM subscriptions WHERE tenant_id=$1 ORDER BY id`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var sub model.Subscription
		var events []byte
		if err := rows.Scan(&sub.ID, &sub.URL, &events, &sub.Secret); err != nil {
			return nil, err
		}
		sub.TenantID = tenantID
		if err := json.Unmarshal(events, &sub.Events); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now())`,
		id, tenantID, nullIfEmpty(subscriptionID), eventType, url, secret, payload)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT id::text, tenant_id, COALESCE(subscription_id::text,''), event_type, url, secret, payload, status, attempts
		 FROM webhook_deliveries WHERE status='pending' AND next_attempt_at <= now() ORDER BY next_attempt_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	status := "pending"
	if success {
		status = "delivered"
	}
	var next any
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status=$2, attempts=attempts+1, next_attempt_at=COALESCE($3, next_attempt_at),
		 last_error=$4, response_code=$5, latency_ms=$6 WHERE id=$1`,
		id, status, next, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE webhook_deliveries SET status='failed', attempts=attempts+1, last_error=$2, response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

