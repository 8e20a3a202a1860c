// Package main runs a demo WebSocket client for circuit events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const sampleCSV = `latitude,longitude,pollution,traffic
52.52,13.405,41.5,120
52.53,13.41,15.2,48
52.51,13.39,60.1,200
52.54,13.42,22.8,85
52.50,13.40,18.3,60
52.55,13.43,35.0,150
`

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Upload a small dataset
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/datasets?name=demo", bytes.NewReader([]byte(sampleCSV)))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var dsResp struct {
		DatasetID string `json:"datasetId"`
		Rows      int    `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dsResp); err != nil {
		log.Fatal(err)
	}
	if dsResp.DatasetID == "" {
		log.Fatal("no dataset id returned")
	}
	log.Printf("Dataset ID: %s (%d rows)", dsResp.DatasetID, dsResp.Rows)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/circuits/ws"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	// connection_init
	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	// subscribe to circuit events for the dataset
	pl, _ := json.Marshal(map[string]any{"datasetId": dsResp.DatasetID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: pl}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Trigger a solve
	time.Sleep(500 * time.Millisecond)
	body := []byte(fmt.Sprintf(`{"datasetId":%q,"points":5}`, dsResp.DatasetID))
	solveReq, _ := http.NewRequest(http.MethodPost, base+"/v1/circuits", bytes.NewReader(body))
	solveReq.Header.Set("Content-Type", "application/json")
	solveReq.Header.Set("X-Tenant-Id", "t_demo")
	solveReq.Header.Set("X-Role", "admin")
	_, _ = http.DefaultClient.Do(solveReq)

	// Wait briefly to receive a few messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
