package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"taskdash/internal/ops"
)

func opsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops",
		Short: "Back up, restore and verify the data directory",
	}
	cmd.AddCommand(opsBackupCmd(a))
	cmd.AddCommand(opsRestoreCmd())
	cmd.AddCommand(opsDrillCmd(a))
	return cmd
}

// dataDir falls back to storage.data_dir from the server config.
func (a *app) dataDir(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := a.serverConfig()
	if err != nil {
		return "", err
	}
	return cfg.Storage.DataDir, nil
}

func opsBackupCmd(a *app) *cobra.Command {
	var dataDir, out string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the data directory as .tar.gz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := a.dataDir(dataDir)
			if err != nil {
				return err
			}
			if out == "" {
				ts := time.Now().UTC().Format("20060102T150405Z")
				out = filepath.Join("backups", "taskdash-"+ts+".tar.gz")
			}
			if err := ops.Backup(dir, out); err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "data directory (default storage.data_dir)")
	cmd.Flags().StringVar(&out, "out", "", "output archive path")
	return cmd
}

func opsRestoreCmd() *cobra.Command {
	var archive, target string
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Unpack a backup archive into a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ops.Restore(archive, target); err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), target)
			return nil
		},
	}
	cmd.Flags().StringVar(&archive, "archive", "", "backup archive (.tar.gz)")
	cmd.Flags().StringVar(&target, "target-dir", "data-restored", "restore target directory")
	_ = cmd.MarkFlagRequired("archive")
	return cmd
}

func opsDrillCmd(a *app) *cobra.Command {
	var driver, dataDir, workDir string
	cmd := &cobra.Command{
		Use:   "drill",
		Short: "Back up, restore into a scratch dir and verify the result opens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.serverConfig()
			if err != nil {
				return err
			}
			if driver == "" {
				driver = cfg.Storage.Driver
			}
			if dataDir == "" {
				dataDir = cfg.Storage.DataDir
			}
			rep, err := ops.Drill(cmd.Context(), driver, dataDir, workDir)
			if err != nil {
				return fmt.Errorf("drill failed: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "backup:", rep.Archive)
			fmt.Fprintln(w, "restored:", rep.RestoreDir)
			fmt.Fprintln(w, "digest:", rep.Digest)
			fmt.Fprintf(w, "tasks: %d projects: %d\n", rep.Tasks, rep.Projects)
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "driver", "", "storage driver (default storage.driver)")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "data directory (default storage.data_dir)")
	cmd.Flags().StringVar(&workDir, "work-dir", os.TempDir(), "scratch directory for drill artifacts")
	return cmd
}
