package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"greencircuit/internal/model"
)

func seedRecords(n int) []model.LocationRecord {
	out := make([]model.LocationRecord, n)
	for i := range out {
		out[i] = model.LocationRecord{ID: i, Latitude: float64(i), Longitude: float64(i), Pollution: 1, Traffic: 1}
	}
	return out
}

func TestMemoryDatasetLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	d, err := m.CreateDataset(ctx, "t1", "berlin", seedRecords(3))
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	if d.ID == "" || d.Rows != 3 {
		t.Fatalf("created dataset: %+v", d)
	}

	got, err := m.GetDataset(ctx, "t1", d.ID)
	if err != nil || len(got.Records) != 3 {
		t.Fatalf("GetDataset: %v, %d records", err, len(got.Records))
	}
	if _, err := m.GetDataset(ctx, "t2", d.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-tenant get: want ErrNotFound, got %v", err)
	}
	if _, err := m.GetDataset(ctx, "t1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing get: want ErrNotFound, got %v", err)
	}
}

func TestMemoryListDatasetsPagination(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := m.CreateDataset(ctx, "t1", "", seedRecords(1)); err != nil {
			t.Fatalf("CreateDataset: %v", err)
		}
	}
	page1, next, err := m.ListDatasets(ctx, "t1", "", 2)
	if err != nil || len(page1) != 2 || next == "" {
		t.Fatalf("page 1: %d items, next=%q, err=%v", len(page1), next, err)
	}
	page2, next2, err := m.ListDatasets(ctx, "t1", next, 2)
	if err != nil || len(page2) != 2 {
		t.Fatalf("page 2: %d items, err=%v", len(page2), err)
	}
	if page2[0].ID == page1[1].ID {
		t.Fatalf("cursor did not advance")
	}
	page3, next3, err := m.ListDatasets(ctx, "t1", next2, 2)
	if err != nil || len(page3) != 1 || next3 != "" {
		t.Fatalf("last page: %d items, next=%q, err=%v", len(page3), next3, err)
	}
}

func TestMemoryCircuitsFilterByDataset(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, ds := range []string{"dsA", "dsA", "dsB"} {
		if _, err := m.SaveCircuit(ctx, model.Circuit{TenantID: "t1", DatasetID: ds, Points: 3}); err != nil {
			t.Fatalf("SaveCircuit: %v", err)
		}
	}
	all, _, err := m.ListCircuits(ctx, "t1", "", "", 10)
	if err != nil || len(all) != 3 {
		t.Fatalf("unfiltered: %d, %v", len(all), err)
	}
	onlyA, _, err := m.ListCircuits(ctx, "t1", "dsA", "", 10)
	if err != nil || len(onlyA) != 2 {
		t.Fatalf("filtered: %d, %v", len(onlyA), err)
	}
	saved := all[0]
	got, err := m.GetCircuit(ctx, "t1", saved.ID)
	if err != nil || got.DatasetID != saved.DatasetID {
		t.Fatalf("GetCircuit: %+v, %v", got, err)
	}
}

func TestMemorySubscriptionsAndMatching(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	s1, _ := m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://a", Events: []string{"circuit.solved"}})
	m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://b", Events: []string{"dataset.created"}})
	m.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t1", URL: "http://c", Events: []string{"*"}})

	subs, err := m.GetSubscriptionsForEvent(ctx, "t1", "circuit.solved")
	if err != nil || len(subs) != 2 {
		t.Fatalf("matching: %d, %v", len(subs), err)
	}
	if err := m.DeleteSubscription(ctx, "t1", s1.ID); err != nil {
		t.Fatalf("DeleteSubscription: %v", err)
	}
	if err := m.DeleteSubscription(ctx, "t1", s1.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: want ErrNotFound, got %v", err)
	}
}

func TestMemoryWebhookQueueStates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	id, err := m.EnqueueWebhook(ctx, "t1", "sub1", "circuit.solved", "http://hook", "", []byte(`{}`))
	if err != nil {
		t.Fatalf("EnqueueWebhook: %v", err)
	}
	due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].ID != id {
		t.Fatalf("due: %+v", due)
	}

	// Retry pushes the next attempt into the future; no longer due.
	next := time.Now().Add(time.Minute)
	if err := m.MarkWebhookDelivery(ctx, id, false, &next, "boom", 500, 12); err != nil {
		t.Fatalf("MarkWebhookDelivery: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("retried delivery still due: %+v", due)
	}

	// Terminal failure keeps it out of the queue for good.
	if err := m.FailWebhookDelivery(ctx, id, "gave up", 500, 5); err != nil {
		t.Fatalf("FailWebhookDelivery: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 0 {
		t.Fatalf("failed delivery still due: %+v", due)
	}
}
