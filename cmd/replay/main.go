// Replay tool for feeding recorded motor telemetry into motordiag.
//
// Usage:
//
//	go run ./cmd/replay -csv data_motor_training.csv -url http://localhost:8080 -motor motor-1
//
// This tool:
//  1. Reads sensor rows logged from the motor controller (one reading per row)
//  2. Posts each row to /motors/{id}/readings, paced by -interval
//  3. Counts applied, queued and failed readings and the alerts they opened
//  4. Reports latency and throughput
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// IngestResponse is the body returned by the readings endpoint.
type IngestResponse struct {
	MotorID      string         `json:"motorId"`
	Status       string         `json:"status"` // "applied" or "queued"
	AlertsOpened []domain.Alert `json:"alertsOpened"`
}

// Metrics tracks replay results
type Metrics struct {
	Applied      int64
	Queued       int64
	Errors       int64
	AlertsOpened int64

	TotalProcessed   int64
	ProcessingTimeMs int64
	MaxLatencyMs     int64
}

func main() {
	csvPath := flag.String("csv", "", "Path to the sensor CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "motordiag base URL")
	motorID := flag.String("motor", "motor-1", "Motor ID the readings belong to")
	limit := flag.Int("limit", 0, "Maximum readings to send (0 = all)")
	interval := flag.Duration("interval", 0, "Delay between readings (0 = as fast as possible)")
	workers := flag.Int("concurrency", 1, "Number of concurrent senders")
	verbose := flag.Bool("verbose", false, "Print each reading result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: replay -csv /path/to/data_motor_training.csv [-url http://localhost:8080] [-motor motor-1]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *workers < 1 {
		*workers = 1
	}

	fmt.Println("motordiag replay")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("URL:         %s\n", *baseURL)
	fmt.Printf("Motor:       %s\n", *motorID)
	fmt.Printf("Interval:    %v\n", *interval)
	fmt.Printf("Concurrency: %d\n", *workers)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: motordiag not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure the service is running:")
		fmt.Println("  go run ./cmd/motordiag serve")
		os.Exit(1)
	}
	fmt.Println("service is healthy")

	readings, skipped, err := readSensorCSV(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("loaded %d readings (%d malformed rows skipped)\n", len(readings), skipped)
	if *workers > 1 {
		fmt.Println("note: concurrent senders do not preserve reading order; daily energy may be off")
	}

	fmt.Printf("\nReplaying with %d sender(s)...\n", *workers)
	startTime := time.Now()
	metrics := replay(readings, *baseURL, *motorID, *workers, *interval, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
	if metrics.Errors > 0 {
		os.Exit(1)
	}
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// readSensorCSV parses the controller log. Unknown columns such as the
// device-side alert flags are ignored; missing columns read as zero.
func readSensorCSV(path string, limit int) ([]domain.SensorReading, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := colIndex["voltage"]; !ok {
		return nil, 0, errors.New("header has no voltage column")
	}

	var readings []domain.SensorReading
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		num := func(col string) float64 {
			i, ok := colIndex[col]
			if !ok || i >= len(record) {
				return 0
			}
			v, _ := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			return v
		}
		boolean := func(col string) bool {
			i, ok := colIndex[col]
			if !ok || i >= len(record) {
				return false
			}
			v, _ := strconv.ParseBool(strings.TrimSpace(record[i]))
			return v
		}

		readings = append(readings, domain.SensorReading{
			Voltage:       num("voltage"),
			Current:       num("current"),
			Power:         num("power"),
			Energy:        num("energy"),
			Frequency:     num("frequency"),
			PowerFactor:   num("pf"),
			MotorTemp:     num("motor_temp"),
			AmbientTemp:   num("ambient_temp"),
			Hotspot:       boolean("hotspot"),
			BearingTemp:   num("bearing_temp"),
			DeltaTemp:     num("delta_temp"),
			Dust:          num("dust"),
			SoilingLoss:   num("soiling_loss"),
			VibrationRMS:  num("vibration_rms_mm_s"),
			Unbalance:     num("unbalance"),
			BearingHealth: num("bearing_health"),
		})

		if limit > 0 && len(readings) >= limit {
			break
		}
	}

	return readings, skipped, nil
}

func replay(readings []domain.SensorReading, baseURL, motorID string, numWorkers int, interval time.Duration, verbose bool) *Metrics {
	metrics := &Metrics{}
	endpoint := fmt.Sprintf("%s/motors/%s/readings", strings.TrimRight(baseURL, "/"), url.PathEscape(motorID))

	work := make(chan domain.SensorReading, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for reading := range work {
				start := time.Now()
				result, err := sendReading(client, endpoint, reading)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)
				for {
					prev := atomic.LoadInt64(&metrics.MaxLatencyMs)
					if elapsed <= prev || atomic.CompareAndSwapInt64(&metrics.MaxLatencyMs, prev, elapsed) {
						break
					}
				}

				if err != nil {
					atomic.AddInt64(&metrics.Errors, 1)
					if verbose {
						fmt.Printf("ERROR: %.1f V %.2f A -> %v\n", reading.Voltage, reading.Current, err)
					}
					continue
				}

				if result.Status == "queued" {
					atomic.AddInt64(&metrics.Queued, 1)
				} else {
					atomic.AddInt64(&metrics.Applied, 1)
				}
				atomic.AddInt64(&metrics.AlertsOpened, int64(len(result.AlertsOpened)))

				if verbose {
					fmt.Printf("%-7s | %6.1f V | %5.2f A | %5.1f C | %5.2f mm/s | alerts: %d\n",
						result.Status,
						reading.Voltage,
						reading.Current,
						reading.MotorTemp,
						reading.VibrationRMS,
						len(result.AlertsOpened),
					)
					for _, a := range result.AlertsOpened {
						fmt.Printf("        ALERT %s (%s): %s\n", a.RuleID, a.Severity, a.Message)
					}
				}
			}
		}()
	}

	for _, r := range readings {
		work <- r
		if interval > 0 {
			time.Sleep(interval)
		}
	}
	close(work)

	wg.Wait()

	return metrics
}

func sendReading(client *http.Client, endpoint string, reading domain.SensorReading) (*IngestResponse, error) {
	body, err := json.Marshal(reading)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nREPLAY RESULTS")

	fmt.Printf("\nReadings\n")
	fmt.Printf("   Total Sent:     %d\n", m.TotalProcessed)
	fmt.Printf("   Applied:        %d\n", m.Applied)
	fmt.Printf("   Queued:         %d\n", m.Queued)
	fmt.Printf("   Errors:         %d\n", m.Errors)
	fmt.Printf("   Alerts Opened:  %d\n", m.AlertsOpened)
	if m.Queued > 0 {
		fmt.Println("   (alerts for queued readings are published on the event bus, not counted here)")
	}

	fmt.Printf("\nPerformance\n")
	fmt.Printf("   Total Duration: %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		rps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:    %.2f ms\n", avgMs)
		fmt.Printf("   Max Latency:    %d ms\n", m.MaxLatencyMs)
		fmt.Printf("   Throughput:     %.2f readings/sec\n", rps)
	}

	fmt.Println()
}
