// Package monitor aggregates engine tick stats into a running summary and
// periodically writes it to a status file.
package monitor

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"gonum.org/v1/gonum/stat"

	"github.com/OCAP2/indicator/pkg/core"
)

const defaultInterval = time.Second

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger *slog.Logger
	// StatusFile is rewritten on every interval. Empty disables the loop's
	// file output; Observe and Summary still work.
	StatusFile string
	Interval   time.Duration
}

// Summary is the aggregate over every observed tick.
type Summary struct {
	Ticks          int
	MeanDuration   time.Duration
	StdDevDuration time.Duration
	P95Duration    time.Duration
	MaxDuration    time.Duration
	MeanActive     float64
	MaxActive      int
	Culled         int
	Hidden         int
	Pruned         int
	Dropped        int
}

// Lines renders s for the status file and the end-of-run report.
func (s Summary) Lines() []string {
	return []string{
		fmt.Sprintf("ticks processed: %s", humanize.Comma(int64(s.Ticks))),
		fmt.Sprintf("tick duration:   mean %s  stddev %s  p95 %s  max %s",
			s.MeanDuration, s.StdDevDuration, s.P95Duration, s.MaxDuration),
		fmt.Sprintf("active markers:  mean %s  max %d",
			humanize.FormatFloat("#,###.##", s.MeanActive), s.MaxActive),
		fmt.Sprintf("culled %s  hidden %s  pruned %s  dropped %s",
			humanize.Comma(int64(s.Culled)), humanize.Comma(int64(s.Hidden)),
			humanize.Comma(int64(s.Pruned)), humanize.Comma(int64(s.Dropped))),
	}
}

// Service manages status monitoring
type Service struct {
	deps Dependencies

	mu        sync.RWMutex
	durations []float64
	active    []float64
	totals    Summary
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = defaultInterval
	}
	return &Service{deps: deps}
}

// Observe adds one processed tick. It is safe to use as an engine tick
// observer.
func (s *Service) Observe(t core.TickStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations = append(s.durations, float64(t.Duration))
	s.active = append(s.active, float64(t.MarkersActive))
	s.totals.Ticks++
	s.totals.Culled += t.Culled
	s.totals.Hidden += t.Hidden
	s.totals.Pruned += t.Pruned
	s.totals.Dropped += t.Dropped
	if t.Duration > s.totals.MaxDuration {
		s.totals.MaxDuration = t.Duration
	}
	if t.MarkersActive > s.totals.MaxActive {
		s.totals.MaxActive = t.MarkersActive
	}
}

// Summary returns the aggregate so far. All fields are zero before the
// first observed tick.
func (s *Service) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.totals
	if len(s.durations) == 0 {
		return out
	}

	mean, std := stat.MeanStdDev(s.durations, nil)
	if len(s.durations) < 2 {
		std = 0
	}
	out.MeanDuration = time.Duration(mean)
	out.StdDevDuration = time.Duration(std)

	sorted := slices.Clone(s.durations)
	slices.Sort(sorted)
	out.P95Duration = time.Duration(stat.Quantile(0.95, stat.Empirical, sorted, nil))

	out.MeanActive = stat.Mean(s.active, nil)
	return out
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start starts the status monitor goroutine
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				s.writeStatus()
				return
			case <-ticker.C:
				s.writeStatus()
			}
		}
	}()
}

// Stop stops the status monitor and waits for the final status write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}

// WriteStatus rewrites the status file with the current summary.
func (s *Service) WriteStatus() error {
	if s.deps.StatusFile == "" {
		return nil
	}
	f, err := os.Create(s.deps.StatusFile)
	if err != nil {
		return fmt.Errorf("creating status file: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "updated: %s\n", time.Now().Format(time.RFC3339))
	for _, line := range s.Summary().Lines() {
		if _, err := fmt.Fprintln(f, line); err != nil {
			return fmt.Errorf("writing status file: %w", err)
		}
	}
	return nil
}

func (s *Service) writeStatus() {
	if err := s.WriteStatus(); err != nil {
		s.deps.Logger.Error("Error writing status file", "error", err)
	}
}
