package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dagbok-backend/internal/config"
	"github.com/dagbok-backend/internal/ratelimit"
	"github.com/dagbok-backend/internal/storage"
)

// Sweeper runs the periodic maintenance jobs: purging expired DEMO
// accounts and pruning idle rate-limit buckets.
type Sweeper struct {
	cron    *cron.Cron
	users   *storage.UserRepository
	buckets *ratelimit.Cache
	demoCfg config.DemoConfig

	mu      sync.Mutex
	running bool
}

func NewSweeper(users *storage.UserRepository, buckets *ratelimit.Cache, demoCfg config.DemoConfig) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		users:   users,
		buckets: buckets,
		demoCfg: demoCfg,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	demoSpec := fmt.Sprintf("@every %s", s.demoCfg.SweepInterval)
	if _, err := s.cron.AddFunc(demoSpec, func() { s.purgeDemoUsers(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule demo purge: %w", err)
	}

	if _, err := s.cron.AddFunc("@every 10m", s.pruneBuckets); err != nil {
		return fmt.Errorf("failed to schedule bucket prune: %w", err)
	}

	s.cron.Start()
	s.running = true

	log.Printf("Sweeper started (demo purge every %s)", s.demoCfg.SweepInterval)
	return nil
}

// Stop stops the cron loop and waits for running jobs to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.running = false
	log.Println("Sweeper stopped")
}

// purgeDemoUsers removes DEMO accounts older than the demo TTL. Their
// tokens and notes cascade away, so any still-circulating demo JWT fails
// user resolution afterwards.
func (s *Sweeper) purgeDemoUsers(ctx context.Context) {
	cutoff := time.Now().Add(-s.demoCfg.TTL)

	removed, err := s.users.DeleteDemoCreatedBefore(ctx, cutoff)
	if err != nil {
		log.Printf("Demo purge failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Purged %d expired demo users", removed)
	}
}

func (s *Sweeper) pruneBuckets() {
	if removed := s.buckets.Prune(); removed > 0 {
		log.Printf("Evicted %d idle rate-limit buckets", removed)
	}
}
