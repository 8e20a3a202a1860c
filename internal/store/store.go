package store

import (
	"context"
	"errors"
	"time"

	"greencircuit/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Datasets
	CreateDataset(ctx context.Context, tenantID, name string, records []model.LocationRecord) (model.Dataset, error)
	GetDataset(ctx context.Context, tenantID, id string) (model.Dataset, error)
	ListDatasets(ctx context.Context, tenantID, cursor string, limit int) ([]model.DatasetSummary, string, error)

	// Circuits
	SaveCircuit(ctx context.Context, c model.Circuit) (model.Circuit, error)
	GetCircuit(ctx context.Context, tenantID, id string) (model.Circuit, error)
	ListCircuits(ctx context.Context, tenantID, datasetID, cursor string, limit int) ([]model.Circuit, string, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error)
	DeleteSubscription(ctx context.Context, tenantID, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
}

// WebhookDelivery is one queued outbound event delivery.
type WebhookDelivery struct {
	ID             string
	TenantID       string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}

var ErrNotFound = errors.New("not found")
