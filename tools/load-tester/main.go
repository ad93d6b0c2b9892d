package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var attributes = []string{"attributeDate1", "attributeDate2", "attributeDate6", "attributeDate7"}

// payload builds an OTM transactions envelope for one shipment with one tracked date.
func payload(shipmentID string) string {
	attr := attributes[rand.IntN(len(attributes))]
	return fmt.Sprintf(`{"transactions": {"items": [{"body": {"shipmentXid": %q, "attributeNumber7": "%d.0", "stops": [{%q: {"value": %q}}]}}]}}`,
		shipmentID, 1000000000+rand.IntN(99999999), attr, time.Now().UTC().Format("2006-01-02 15:04:05"))
}

func main() {
	targetURL := flag.String("url", "http://localhost:5000/send-message", "Target webhook URL")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 50, "Requests per second limit")
	shipments := flag.Int("shipments", 100, "Distinct shipment IDs to cycle through")
	flag.Parse()

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d, Shipments: %d", *concurrency, *duration, *rps, *shipments)

	ids := make([]string, max(*shipments, 1))
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 10)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}

			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				body := payload(ids[rand.IntN(len(ids))])
				req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewBufferString(body))
				if err != nil {
					continue
				}
				req.Header.Set("Content-Type", "application/json")

				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						errorCount.Add(1)
					}
					continue
				}

				if resp.StatusCode == http.StatusOK {
					successCount.Add(1)
				} else {
					errorCount.Add(1)
				}
				resp.Body.Close()
			}
		}()
	}

	wg.Wait()

	totalRequests := successCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (200 OK): %d", successCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}
