// cmd/sweeper/main.go
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"
)

// The sweeper drives the reservation expiry sweep on a fixed interval. The
// sweep itself is idempotent, so an overlapping or repeated run is harmless.
func main() {
	reservationsURL := getEnv("RESERVATIONS_SERVICE_URL", "http://localhost:8084")

	interval, err := time.ParseDuration(getEnv("SWEEP_INTERVAL", "1h"))
	if err != nil {
		log.Fatalf("Invalid SWEEP_INTERVAL: %v", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}

	log.Printf("Reservation sweeper running every %s against %s", interval, reservationsURL)
	for {
		sweep(client, reservationsURL)
		time.Sleep(interval)
	}
}

func sweep(client *http.Client, baseURL string) {
	resp, err := client.Post(baseURL+"/expire", "application/json", nil)
	if err != nil {
		log.Printf("Sweep failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Sweep failed: status %d", resp.StatusCode)
		return
	}

	var result struct {
		Expired int `json:"expired"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("Sweep response unreadable: %v", err)
		return
	}
	log.Printf("Sweep complete: %d reservations expired", result.Expired)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
