// Package telemetry collects anonymous usage events. Collection is skipped
// entirely when QUARRY_TELEMETRY_DISABLED is set or --no-telemetry is passed.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"sync"
	"time"
)

// Event represents a telemetry event. Events carry command names, durations
// and error codes only, never query payloads or workspace ids.
type Event struct {
	EventType    string         `json:"event_type"`
	Command      string         `json:"command,omitempty"`
	Duration     *time.Duration `json:"duration,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	Metric       string         `json:"metric,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Version      string         `json:"version"`
	OS           string         `json:"os"`
	Architecture string         `json:"architecture"`
}

// Collector manages telemetry collection
type Collector struct {
	enabled       bool
	endpoint      string
	events        []Event
	mu            sync.Mutex
	httpClient    *http.Client
	version       string
	batchSize     int
	flushInterval time.Duration
	stopChan      chan struct{}
	wg            sync.WaitGroup
}

var (
	globalCollector *Collector
	once            sync.Once
)

// Init initializes the global telemetry collector
func Init(version string, enabled bool) {
	once.Do(func() {
		globalCollector = &Collector{
			enabled:       enabled && !isDisabled(),
			endpoint:      endpoint(),
			events:        make([]Event, 0, 100),
			httpClient:    &http.Client{Timeout: 5 * time.Second},
			version:       version,
			batchSize:     10,
			flushInterval: 30 * time.Second,
			stopChan:      make(chan struct{}),
		}

		if globalCollector.enabled {
			globalCollector.startBackgroundFlush()
		}
	})
}

// RecordCommand records a command execution event
func RecordCommand(command string, duration time.Duration, errorCode string) {
	if globalCollector == nil || !globalCollector.enabled {
		return
	}

	event := Event{
		EventType:    "command",
		Command:      command,
		Duration:     &duration,
		ErrorCode:    errorCode,
		Timestamp:    time.Now(),
		Version:      globalCollector.version,
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	globalCollector.recordEvent(event)
}

// RecordPerformance records a performance metric
func RecordPerformance(metric string, duration time.Duration) {
	if globalCollector == nil || !globalCollector.enabled {
		return
	}

	event := Event{
		EventType:    "performance",
		Metric:       metric,
		Duration:     &duration,
		Timestamp:    time.Now(),
		Version:      globalCollector.version,
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}

	globalCollector.recordEvent(event)
}

// recordEvent adds an event to the collector
func (c *Collector) recordEvent(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, event)

	// Flush if batch size reached
	if len(c.events) >= c.batchSize {
		go c.flush()
	}
}

// flush sends collected events to the telemetry endpoint
func (c *Collector) flush() {
	c.mu.Lock()
	if len(c.events) == 0 {
		c.mu.Unlock()
		return
	}

	events := make([]Event, len(c.events))
	copy(events, c.events)
	c.events = c.events[:0]
	c.mu.Unlock()

	go c.sendEvents(events)
}

// sendEvents sends events to the telemetry endpoint
func (c *Collector) sendEvents(events []Event) {
	if len(events) == 0 {
		return
	}

	payload := map[string]any{
		"events": events,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		// Telemetry must never break the application
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("quarry/%s", c.version))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)
}

// startBackgroundFlush starts a background goroutine to flush events periodically
func (c *Collector) startBackgroundFlush() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.flush()
			case <-c.stopChan:
				// Final flush before stopping
				c.flush()
				return
			}
		}
	}()
}

// Shutdown stops the telemetry collector and flushes remaining events
func Shutdown() {
	if globalCollector == nil || !globalCollector.enabled {
		return
	}

	close(globalCollector.stopChan)
	globalCollector.wg.Wait()
	globalCollector.flush()
}

// isDisabled checks if telemetry is disabled via environment variable or flag
func isDisabled() bool {
	if os.Getenv("QUARRY_TELEMETRY_DISABLED") == "1" || os.Getenv("QUARRY_TELEMETRY_DISABLED") == "true" {
		return true
	}

	for _, arg := range os.Args {
		if arg == "--no-telemetry" {
			return true
		}
	}

	return false
}

// endpoint returns the telemetry endpoint URL
func endpoint() string {
	if ep := os.Getenv("QUARRY_TELEMETRY_ENDPOINT"); ep != "" {
		return ep
	}
	return "https://telemetry.quarry.dev/events"
}

// IsEnabled returns whether telemetry is enabled
func IsEnabled() bool {
	return globalCollector != nil && globalCollector.enabled
}
