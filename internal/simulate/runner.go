package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/idscan/internal/domain/history"
	"github.com/okian/idscan/internal/domain/studentid"
	"github.com/okian/idscan/pkg/logger"
)

const (
	directoryPermission = 0o750
	filePermission      = 0o600
	settlePoll          = 50 * time.Millisecond
)

// ErrVerification is returned when the service broke one of its guarantees.
var ErrVerification = errors.New("verification failed")

// Run executes a complete simulation and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{
		RunID:     uuid.NewString(),
		Outcomes:  make(map[string]int),
		StartTime: time.Now(),
	}
	log := logger.Get().Named("simulate")
	log.Info(ctx, "starting scan simulation",
		logger.String("runID", stats.RunID),
		logger.String("baseURL", config.BaseURL),
		logger.Int("scans", config.NumScans),
		logger.Int("workers", config.Workers),
		logger.Duration("interval", config.Interval),
	)

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if err := client.health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}
	if config.Reset {
		if err := client.reset(ctx); err != nil {
			return nil, fmt.Errorf("session reset failed: %w", err)
		}
	}
	before, err := client.stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}

	// Step 2: Generate detections
	frames, err := generateFrames(ctx, config, stats)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	// Step 3: Send them
	accepted := submitFrames(ctx, config, client, frames, stats)

	// Step 4: Wait for persistence and verify
	after, err := waitPersisted(ctx, config, client, before.Persisted+int64(len(accepted)))
	if err != nil {
		return nil, err
	}
	stats.Persisted = after.Persisted - before.Persisted
	if err := verify(ctx, client, accepted, stats); err != nil {
		return stats, err
	}

	// Step 5: Save the plan
	if config.OutputFile != "" {
		if err := saveFrames(config.OutputFile, frames); err != nil {
			log.Warn(ctx, "failed to save detections", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "simulation completed",
		logger.String("runID", stats.RunID),
		logger.Int("accepted", stats.Outcomes[StatusAccepted]),
		logger.Int("invalid", stats.Outcomes[StatusInvalidFormat]),
		logger.Int("duplicate", stats.Outcomes[StatusDuplicate]),
		logger.Int("debounced", stats.Outcomes[StatusDebounced]),
		logger.Int("failed", stats.Outcomes[StatusFailed]),
		logger.Any("persisted", stats.Persisted),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// submitFrames sends frames through config.Workers concurrent scanners and
// returns the student IDs the service accepted.
func submitFrames(ctx context.Context, config *Config, client *httpClient, frames []Frame, stats *Stats) []string {
	log := logger.Get().Named("simulate")
	workers := max(config.Workers, 1)

	var (
		mu       sync.Mutex
		accepted []string
		wg       sync.WaitGroup
	)
	ch := make(chan Frame, workers*2)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range ch {
				resp, err := client.postDetection(ctx, f.Detection)
				status := resp.Status
				if err != nil {
					status = StatusFailed
					log.Warn(ctx, "detection failed", logger.String("code", f.Detection.CodeResult.Code), logger.Error(err))
				} else if config.Verbose {
					log.Debug(ctx, "detection sent",
						logger.String("code", f.Detection.CodeResult.Code),
						logger.String("intent", string(f.Intent)),
						logger.String("status", status),
					)
				}

				mu.Lock()
				stats.Outcomes[status]++
				if status == StatusAccepted && resp.Record != nil {
					accepted = append(accepted, resp.Record.StudentID)
				}
				mu.Unlock()

				if config.Interval > 0 {
					select {
					case <-ctx.Done():
					case <-time.After(config.Interval):
					}
				}
			}
		}()
	}

send:
	for _, f := range frames {
		select {
		case <-ctx.Done():
			break send
		case ch <- f:
		}
	}
	close(ch)
	wg.Wait()
	return accepted
}

// waitPersisted polls /stats until want scans are persisted or SettleWait passes.
func waitPersisted(ctx context.Context, config *Config, client *httpClient, want int64) (serviceStats, error) {
	deadline := time.Now().Add(config.SettleWait)
	for {
		s, err := client.stats(ctx)
		if err != nil {
			return s, fmt.Errorf("read stats: %w", err)
		}
		if s.Persisted >= want {
			return s, nil
		}
		if time.Now().After(deadline) {
			return s, fmt.Errorf("%w: %d scans persisted, want %d", ErrVerification, s.Persisted, want)
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-time.After(settlePoll):
		}
	}
}

// verify checks the session buffer against what the run accepted.
func verify(ctx context.Context, client *httpClient, accepted []string, stats *Stats) error {
	recent, err := client.recent(ctx)
	if err != nil {
		return fmt.Errorf("read recent scans: %w", err)
	}
	if len(recent) > history.Capacity {
		return fmt.Errorf("%w: %d scans buffered, capacity is %d", ErrVerification, len(recent), history.Capacity)
	}
	seen := make(map[string]struct{}, len(recent))
	for i, rec := range recent {
		if !studentid.Valid(rec.StudentID) {
			return fmt.Errorf("%w: buffered scan %q is not a valid student ID", ErrVerification, rec.StudentID)
		}
		if _, dup := seen[rec.StudentID]; dup {
			return fmt.Errorf("%w: %s buffered twice", ErrVerification, rec.StudentID)
		}
		seen[rec.StudentID] = struct{}{}
		if i > 0 && rec.SequenceID >= recent[i-1].SequenceID {
			return fmt.Errorf("%w: buffer is not newest first", ErrVerification)
		}
	}
	if stats.Persisted < int64(len(accepted)) {
		return fmt.Errorf("%w: %d accepted but %d persisted", ErrVerification, len(accepted), stats.Persisted)
	}
	return nil
}

// saveFrames writes the generated plan as JSON.
func saveFrames(path string, frames []Frame) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(frames, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal detections: %w", err)
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("write detections: %w", err)
	}
	return nil
}
