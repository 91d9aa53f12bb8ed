// Package backup creates point-in-time snapshots of the SQLite memory
// store and prunes old snapshots under a tiered retention policy.
package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config controls where snapshots are written and how long they are kept.
type Config struct {
	// DBPath is the SQLite database file to snapshot.
	DBPath string
	// Dir is the directory snapshots are written to.
	Dir string
	// Interval is the period between scheduled snapshots.
	Interval time.Duration
	// Verify runs an integrity check on each snapshot after it is taken.
	Verify bool
	// Policy is the retention policy applied after each snapshot.
	Policy Policy
}

// Snapshot describes one completed backup file.
type Snapshot struct {
	Path     string
	TakenAt  time.Time
	Size     int64
	Verified bool
	Duration time.Duration
}

// Service takes snapshots on demand or on a schedule.
type Service struct {
	cfg Config

	mu   sync.Mutex
	last time.Time
}

// NewService validates the configuration and creates the snapshot directory.
func NewService(cfg Config) (*Service, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("backup: database path is required")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("backup: snapshot directory is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Policy == (Policy{}) {
		cfg.Policy = DefaultPolicy()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create snapshot directory: %w", err)
	}
	return &Service{cfg: cfg}, nil
}

// Run takes a snapshot every interval until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Printf("backup: scheduled every %v into %s", s.cfg.Interval, s.cfg.Dir)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap, err := s.BackupNow(ctx)
			if err != nil {
				log.Printf("backup: WARNING: scheduled snapshot failed: %v", err)
				continue
			}
			log.Printf("backup: wrote %s (%d bytes in %s, verified=%v)",
				snap.Path, snap.Size, snap.Duration.Round(time.Millisecond), snap.Verified)
		}
	}
}

// BackupNow takes one snapshot, optionally verifies it, and prunes old
// snapshots. Retention failures are logged but do not fail the snapshot.
func (s *Service) BackupNow(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	if _, err := os.Stat(s.cfg.DBPath); err != nil {
		return nil, fmt.Errorf("backup: database not found: %w", err)
	}

	// Microseconds in the name keep rapid successive snapshots distinct.
	name := fmt.Sprintf("recall-%s.db", start.Format("20060102-150405.000000"))
	path := filepath.Join(s.cfg.Dir, name)

	if err := vacuumInto(ctx, s.cfg.DBPath, path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("backup: stat snapshot: %w", err)
	}

	snap := &Snapshot{
		Path:     path,
		TakenAt:  start,
		Size:     info.Size(),
		Duration: time.Since(start),
	}
	if s.cfg.Verify {
		if err := integrityCheck(ctx, path); err != nil {
			return nil, fmt.Errorf("backup: snapshot failed verification: %w", err)
		}
		snap.Verified = true
	}

	s.mu.Lock()
	s.last = start
	s.mu.Unlock()

	if err := prune(s.cfg.Dir, s.cfg.Policy, time.Now()); err != nil {
		log.Printf("backup: WARNING: retention sweep failed: %v", err)
	}
	return snap, nil
}

// Restore replaces the live database with the given snapshot. The store
// must be closed before calling this. The previous database is kept as a
// rollback copy until the restored file passes verification.
func (s *Service) Restore(ctx context.Context, snapshotPath string) error {
	if err := integrityCheck(ctx, snapshotPath); err != nil {
		return fmt.Errorf("backup: snapshot failed verification: %w", err)
	}

	rollback := s.cfg.DBPath + ".pre-restore"
	hadPrevious := false
	if _, err := os.Stat(s.cfg.DBPath); err == nil {
		if err := vacuumInto(ctx, s.cfg.DBPath, rollback); err != nil {
			return fmt.Errorf("backup: preserve current database: %w", err)
		}
		hadPrevious = true
	}

	if err := copyFile(snapshotPath, s.cfg.DBPath); err != nil {
		if hadPrevious {
			if rbErr := copyFile(rollback, s.cfg.DBPath); rbErr != nil {
				return fmt.Errorf("backup: restore failed and rollback failed: %v (restore error: %w)", rbErr, err)
			}
			return fmt.Errorf("backup: restore failed, previous database kept: %w", err)
		}
		return err
	}
	if err := integrityCheck(ctx, s.cfg.DBPath); err != nil {
		return fmt.Errorf("backup: restored database failed verification: %w", err)
	}
	if hadPrevious {
		os.Remove(rollback)
	}
	log.Printf("backup: restored %s from %s", s.cfg.DBPath, snapshotPath)
	return nil
}

// List returns the snapshots currently on disk, newest first.
func (s *Service) List() ([]Snapshot, error) {
	return listSnapshots(s.cfg.Dir)
}

// LastBackup reports when the most recent snapshot in this process completed.
func (s *Service) LastBackup() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
