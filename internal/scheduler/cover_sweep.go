package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultMinAge keeps recently written covers out of a sweep, so an upload
// whose book row is not committed yet is not treated as an orphan.
const DefaultMinAge = time.Hour

// ReferencedCovers lists the cover filenames still used by books.
type ReferencedCovers interface {
	CoverFilenames(ctx context.Context) ([]string, error)
}

// CoverFiles is the covers directory as seen by the sweeper.
type CoverFiles interface {
	List() ([]string, error)
	Path(name string) (string, error)
	Remove(name string) error
}

// ThumbnailInvalidator drops cached thumbnails of a cover.
type ThumbnailInvalidator interface {
	Invalidate(name string) error
}

// CoverSweeper periodically removes cover files no book references.
type CoverSweeper struct {
	refs     ReferencedCovers
	files    CoverFiles
	thumbs   ThumbnailInvalidator
	schedule string
	minAge   time.Duration
	now      func() time.Time

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	sweepMu   sync.Mutex
	isRunning bool
}

// NewCoverSweeper creates a sweeper for the given 5-field cron schedule.
// thumbs may be nil.
func NewCoverSweeper(refs ReferencedCovers, files CoverFiles, thumbs ThumbnailInvalidator, schedule string) *CoverSweeper {
	return &CoverSweeper{
		refs:     refs,
		files:    files,
		thumbs:   thumbs,
		schedule: schedule,
		minAge:   DefaultMinAge,
		now:      time.Now,
		cron:     cron.New(cron.WithParser(newParser())),
	}
}

func newParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
}

// ValidateSchedule reports whether schedule is a valid 5-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := newParser().Parse(schedule)
	return err
}

// SetMinAge overrides DefaultMinAge.
func (s *CoverSweeper) SetMinAge(d time.Duration) {
	s.minAge = d
}

// Start schedules the sweep. The sweeper stops when ctx is cancelled.
func (s *CoverSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cover sweep: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	log.Printf("Cover sweep scheduler: started with schedule '%s'. Next run: %v", s.schedule, s.cron.Entry(entryID).Next)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running sweep to finish.
func (s *CoverSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false

	log.Printf("Cover sweep scheduler: stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *CoverSweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next sweep will occur, or nil when stopped.
func (s *CoverSweeper) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *CoverSweeper) runSweep(ctx context.Context) {
	removed, err := s.SweepNow(ctx)
	if err != nil {
		log.Printf("Cover sweep: %v", err)
		return
	}
	log.Printf("Cover sweep: removed %d orphaned covers", len(removed))
}

// SweepNow runs one pass and returns the names it removed. Files younger
// than the minimum age are kept. A failed removal is logged and skipped.
func (s *CoverSweeper) SweepNow(ctx context.Context) ([]string, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	referenced, err := s.refs.CoverFilenames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list referenced covers: %w", err)
	}
	inUse := make(map[string]bool, len(referenced))
	for _, name := range referenced {
		inUse[name] = true
	}

	stored, err := s.files.List()
	if err != nil {
		return nil, fmt.Errorf("list stored covers: %w", err)
	}

	var removed []string
	for _, name := range stored {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if inUse[name] || s.tooRecent(name) {
			continue
		}
		if err := s.files.Remove(name); err != nil {
			log.Printf("Cover sweep: failed to remove %s: %v", name, err)
			continue
		}
		if s.thumbs != nil {
			if err := s.thumbs.Invalidate(name); err != nil {
				log.Printf("Cover sweep: failed to remove thumbnail %s: %v", name, err)
			}
		}
		removed = append(removed, name)
	}
	return removed, nil
}

func (s *CoverSweeper) tooRecent(name string) bool {
	if s.minAge <= 0 {
		return false
	}
	path, err := s.files.Path(name)
	if err != nil {
		return true
	}
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return s.now().Sub(info.ModTime()) < s.minAge
}
