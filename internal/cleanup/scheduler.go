package cleanup

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Scheduler removes stale temporary files. Chunk and derived files are
// normally removed by the request that made them; this catches what a
// crashed process leaves behind.
type Scheduler struct {
	tempDir  string
	interval time.Duration
	maxAge   time.Duration
	onSweep  func()

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewScheduler creates a new cleanup scheduler. onSweep, when set, runs
// after every sweep.
func NewScheduler(tempDir string, intervalMinutes, maxAgeHours int, onSweep func()) *Scheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 30
	}
	if maxAgeHours <= 0 {
		maxAgeHours = 24
	}
	return &Scheduler{
		tempDir:  tempDir,
		interval: time.Duration(intervalMinutes) * time.Minute,
		maxAge:   time.Duration(maxAgeHours) * time.Hour,
		onSweep:  onSweep,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval
func (s *Scheduler) Start() {
	log.Println("Running initial temp file cleanup...")
	s.Sweep()

	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopChan:
				return
			}
		}
	}()

	log.Printf("Cleanup scheduler started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop stops the cleanup scheduler and waits for a running sweep
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		<-s.done
		log.Println("Cleanup scheduler stopped")
	})
}

// Sweep removes files older than the max age and returns how many were deleted
func (s *Scheduler) Sweep() int {
	now := time.Now()

	var (
		deletedCount int
		deletedSize  uint64
	)

	err := filepath.Walk(s.tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip what we can't access
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.maxAge {
			return nil
		}

		if err := os.Remove(path); err != nil {
			log.Printf("Failed to delete old file %s: %v", path, err)
			return nil
		}
		deletedCount++
		deletedSize += uint64(info.Size())
		log.Printf("Deleted old temp file: %s (age: %s, size: %s)",
			filepath.Base(path), age.Round(time.Hour), humanize.IBytes(uint64(info.Size())))
		return nil
	})
	if err != nil {
		log.Printf("Error during cleanup: %v", err)
	}

	if deletedCount > 0 {
		log.Printf("Cleanup complete: %d files deleted, %s freed", deletedCount, humanize.IBytes(deletedSize))
	}

	if s.onSweep != nil {
		s.onSweep()
	}
	return deletedCount
}

// EnsureTempDirExists creates the temp directory if it doesn't exist
func EnsureTempDirExists(tempDir string) error {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return err
	}
	log.Printf("Temp directory ready: %s", tempDir)
	return nil
}
