package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"greencircuit/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu       sync.Mutex
	datasets map[string]model.Dataset     // id -> dataset
	dsByTen  map[string][]string          // tenant -> dataset ids, insert order
	circuits map[string]model.Circuit     // id -> circuit
	ccByTen  map[string][]string          // tenant -> circuit ids, insert order
	subs     map[string][]model.Subscription

	deliveries  map[string]*memDelivery
	deliveryIDs []string
}

func NewMemory() *Memory {
	return &Memory{
		datasets:   map[string]model.Dataset{},
		dsByTen:    map[string][]string{},
		circuits:   map[string]model.Circuit{},
		ccByTen:    map[string][]string{},
		subs:       map[string][]model.Subscription{},
		deliveries: map[string]*memDelivery{},
	}
}

// memDelivery augments WebhookDelivery with scheduling state.
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
}

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

func (m *Memory) CreateDataset(ctx context.Context, tenantID, name string, records []model.LocationRecord) (model.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := model.Dataset{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Name:      name,
		Rows:      len(records),
		CreatedAt: nowRFC3339(),
		Records:   append([]model.LocationRecord(nil), records...),
	}
	m.datasets[d.ID] = d
	m.dsByTen[tenantID] = append(m.dsByTen[tenantID], d.ID)
	return d, nil
}

func (m *Memory) GetDataset(ctx context.Context, tenantID, id string) (model.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.datasets[id]
	if !ok || d.TenantID != tenantID {
		return model.Dataset{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) ListDatasets(ctx context.Context, tenantID, cursor string, limit int) ([]model.DatasetSummary, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	ids := m.dsByTen[tenantID]
	start := cursorOffset(ids, cursor)
	out := []model.DatasetSummary{}
	var next string
	for i := start; i < len(ids) && len(out) < limit; i++ {
		d := m.datasets[ids[i]]
		out = append(out, model.DatasetSummary{ID: d.ID, Name: d.Name, Rows: d.Rows, CreatedAt: d.CreatedAt})
		next = d.ID
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) SaveCircuit(ctx context.Context, c model.Circuit) (model.Circuit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt == "" {
		c.CreatedAt = nowRFC3339()
	}
	m.circuits[c.ID] = c
	m.ccByTen[c.TenantID] = append(m.ccByTen[c.TenantID], c.ID)
	return c, nil
}

func (m *Memory) GetCircuit(ctx context.Context, tenantID, id string) (model.Circuit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.circuits[id]
	if !ok || c.TenantID != tenantID {
		return model.Circuit{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) ListCircuits(ctx context.Context, tenantID, datasetID, cursor string, limit int) ([]model.Circuit, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	ids := m.ccByTen[tenantID]
	start := cursorOffset(ids, cursor)
	out := []model.Circuit{}
	var next string
	for i := start; i < len(ids) && len(out) < limit; i++ {
		c := m.circuits[ids[i]]
		if datasetID != "" && c.DatasetID != datasetID {
			continue
		}
		out = append(out, c)
		next = c.ID
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func cursorOffset(ids []string, cursor string) int {
	if cursor == "" {
		return 0
	}
	for i, id := range ids {
		if id == cursor {
			return i + 1
		}
	}
	return 0
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := model.Subscription{
		ID:       uuid.New().String(),
		TenantID: req.TenantID,
		URL:      req.URL,
		Events:   append([]string(nil), req.Events...),
		Secret:   req.Secret,
	}
	m.subs[req.TenantID] = append(m.subs[req.TenantID], sub)
	return sub, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Subscription{}
	for _, sub := range m.subs[tenantID] {
		for _, e := range sub.Events {
			if e == eventType || e == "*" {
				out = append(out, sub)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Subscription(nil), m.subs[tenantID]...), nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[tenantID]
	for i, sub := range subs {
		if sub.ID == id {
			m.subs[tenantID] = append(subs[:i], subs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	m.deliveries[id] = &memDelivery{
		WebhookDelivery: WebhookDelivery{
			ID: id, TenantID: tenantID, SubscriptionID: subscriptionID,
			EventType: eventType, URL: url, Secret: secret,
			Payload: payload, Status: "pending",
		},
		NextAttemptAt: time.Now(),
	}
	m.deliveryIDs = append(m.deliveryIDs, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.deliveryIDs {
		d := m.deliveries[id]
		if d == nil || d.Status != "pending" || d.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, d.WebhookDelivery)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
	} else if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}
