package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mindwell/recall/internal/backup"
	"github.com/mindwell/recall/internal/config"
)

var backupDirFlag string

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the SQLite memory store",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := backupService(loadConfig())
		snap, err := svc.BackupNow(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d bytes, verified=%v)\n", snap.Path, snap.Size, snap.Verified)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		snaps, err := backupService(loadConfig()).List()
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(snaps, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <snapshot>",
	Short: "Replace the live database with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return backupService(loadConfig()).Restore(cmd.Context(), args[0])
	},
}

func backupService(cfg *config.Config) *backup.Service {
	if cfg.Storage.Engine != "sqlite" {
		exitErr("backup", fmt.Errorf("storage engine %q has no snapshot support", cfg.Storage.Engine))
	}
	dir := backupDirFlag
	if dir == "" {
		dir = cfg.Backup.Dir
	}
	if dir == "" {
		dir = filepath.Join(cfg.Storage.DataPath, "backups")
	}
	svc, err := backup.NewService(backup.Config{
		DBPath:   filepath.Join(cfg.Storage.DataPath, "recall.db"),
		Dir:      dir,
		Interval: cfg.Backup.Interval,
		Verify:   cfg.Backup.Verify,
	})
	if err != nil {
		exitErr("backup", err)
	}
	return svc
}

func init() {
	backupCmd.PersistentFlags().StringVar(&backupDirFlag, "dir", "", "Snapshot directory (default: <data_path>/backups)")
	backupCmd.AddCommand(backupListCmd, backupRestoreCmd)
	RootCmd.AddCommand(backupCmd)
}
