package model

// Core domain types for dataset ingest and circuit planning.

// LocationRecord is one geotagged measurement row. ID is the origin row
// index (header excluded) and stays stable for the life of the dataset.
type LocationRecord struct {
	ID            int     `json:"id"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Pollution     float64 `json:"pollution"`
	Traffic       float64 `json:"traffic"`
	PollutionNorm float64 `json:"pollutionNorm"`
	TrafficNorm   float64 `json:"trafficNorm"`
	Score         float64 `json:"score"`
}

// Dataset is a full loaded measurement table.
type Dataset struct {
	ID        string           `json:"id"`
	TenantID  string           `json:"tenantId"`
	Name      string           `json:"name,omitempty"`
	Rows      int              `json:"rows"`
	CreatedAt string           `json:"createdAt"`
	Records   []LocationRecord `json:"records,omitempty"`
}

// DatasetSummary is the list view of a dataset (no rows).
type DatasetSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Rows      int    `json:"rows"`
	CreatedAt string `json:"createdAt"`
}

// SolveRequest asks for a circuit over the best Points locations of a dataset.
type SolveRequest struct {
	TenantID  string `json:"tenantId,omitempty"`
	DatasetID string `json:"datasetId"`
	Points    int    `json:"points"`
}

// Circuit is a solved closed tour over the selected locations.
// Order holds record IDs in visit order; the last stop connects back to the
// first. Means are taken over the circuit's stops, matching the summary the
// presentation layer shows next to the map.
type Circuit struct {
	ID             string           `json:"id"`
	TenantID       string           `json:"tenantId"`
	DatasetID      string           `json:"datasetId"`
	Points         int              `json:"points"`
	Order          []int            `json:"order"`
	Stops          []LocationRecord `json:"stops"`
	TotalLength    float64          `json:"totalLength"`
	BaselineLength float64          `json:"baselineLength"`
	MeanPollution  float64          `json:"meanPollution"`
	MeanTraffic    float64          `json:"meanTraffic"`
	CreatedAt      string           `json:"createdAt"`
}

// Webhook subscription models
type SubscriptionRequest struct {
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret"`
}

type Subscription struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenantId"`
	URL      string   `json:"url"`
	Events   []string `json:"events"`
	Secret   string   `json:"secret,omitempty"`
}
