package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Policy sets how many snapshots to keep per age tier. Snapshots under a
// day old count as hourly, under a week as daily, under 30 days as weekly,
// under a year as monthly. Anything older than a year is always removed.
type Policy struct {
	Hourly  int
	Daily   int
	Weekly  int
	Monthly int
}

// DefaultPolicy keeps a day of hourly, a week of daily, a month of weekly,
// and a year of monthly snapshots.
func DefaultPolicy() Policy {
	return Policy{Hourly: 24, Daily: 7, Weekly: 4, Monthly: 12}
}

// listSnapshots returns the snapshot files in dir, newest first.
func listSnapshots(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("backup: read snapshot directory: %w", err)
	}

	var snaps []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{
			Path:    filepath.Join(dir, entry.Name()),
			TakenAt: info.ModTime(),
			Size:    info.Size(),
		})
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].TakenAt.After(snaps[j].TakenAt)
	})
	return snaps, nil
}

// prune removes snapshots beyond the per-tier retention counts. Removal
// errors do not stop the sweep; the last one is returned.
func prune(dir string, policy Policy, now time.Time) error {
	snaps, err := listSnapshots(dir)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return nil
	}

	var hourly, daily, weekly, monthly []Snapshot
	var doomed []string
	for _, snap := range snaps {
		age := now.Sub(snap.TakenAt)
		switch {
		case age < 24*time.Hour:
			hourly = append(hourly, snap)
		case age < 7*24*time.Hour:
			daily = append(daily, snap)
		case age < 30*24*time.Hour:
			weekly = append(weekly, snap)
		case age < 365*24*time.Hour:
			monthly = append(monthly, snap)
		default:
			doomed = append(doomed, snap.Path)
		}
	}

	for _, tier := range []struct {
		snaps []Snapshot
		keep  int
	}{
		{hourly, policy.Hourly},
		{daily, policy.Daily},
		{weekly, policy.Weekly},
		{monthly, policy.Monthly},
	} {
		if len(tier.snaps) > tier.keep {
			for _, snap := range tier.snaps[tier.keep:] {
				doomed = append(doomed, snap.Path)
			}
		}
	}

	var lastErr error
	for _, path := range doomed {
		if err := os.Remove(path); err != nil {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("backup: remove expired snapshots: %w", lastErr)
	}
	return nil
}
