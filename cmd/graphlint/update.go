package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphlint/graphlint/internal/selfupdate"
)

// newCommand wraps exec.Command for testability.
var newCommand = exec.Command

func newUpdateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update graphlint to the latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd.Context(), dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "check for updates without installing")
	return cmd
}

func runUpdate(ctx context.Context, dryRun bool) error {
	fmt.Printf("graphlint %s — checking for updates...\n", version)

	if runtime.GOOS == "windows" {
		return fmt.Errorf("self-update is not supported on Windows; download the latest release from https://github.com/graphlint/graphlint/releases/latest")
	}

	client := selfupdate.NewClient()
	update, err := client.Check(ctx, version)
	if err != nil {
		return err
	}
	if update == nil {
		fmt.Printf("Already up to date (%s).\n", version)
		return nil
	}

	fmt.Printf("Update available: %s -> v%s\n", version, update.Version)

	if dryRun {
		fmt.Printf("[dry-run] Would download: %s (%d bytes)\n", update.Asset.Name, update.Asset.Size)
		fmt.Println("[dry-run] Would replace the current binary.")
		return nil
	}

	fmt.Printf("Downloading %s...\n", update.Asset.Name)
	binaryData, err := client.Download(ctx, update)
	if err != nil {
		return err
	}

	if err := replaceBinary(binaryData); err != nil {
		return err
	}

	fmt.Printf("Updated to v%s.\n", update.Version)
	return nil
}

// replaceBinary atomically swaps the current binary with the new one.
func replaceBinary(binaryData []byte) error {
	binaryPath, err := detectBinaryPath()
	if err != nil {
		return err
	}

	fmt.Printf("Replacing binary at %s...\n", binaryPath)

	tmpPath := binaryPath + ".tmp"
	if err := os.WriteFile(tmpPath, binaryData, 0o600); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o500); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}

	bakPath := binaryPath + ".bak"
	if cpErr := copyFile(binaryPath, bakPath); cpErr != nil {
		fmt.Fprintf(os.Stderr, "warning: backup failed: %v\n", cpErr)
	}

	if err := os.Rename(tmpPath, binaryPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}

	if err := verifyBinary(binaryPath); err != nil {
		fmt.Println("Restoring previous version...")
		if restoreErr := os.Rename(bakPath, binaryPath); restoreErr != nil {
			return fmt.Errorf("restore failed (%v), backup at: %s", restoreErr, bakPath)
		}
		fmt.Println("Previous version restored.")
		return fmt.Errorf("new binary verification failed: %w", err)
	}

	os.Remove(bakPath)
	return nil
}

// detectBinaryPath resolves the current binary's real path.
func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("detect binary: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve symlink: %w", err)
	}
	return resolved, nil
}

// verifyBinary runs --version on the new binary to ensure it works.
func verifyBinary(path string) error {
	cmd := newCommand(path, "--version")
	out, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("--version failed: %w", err)
	}
	output := strings.TrimSpace(string(out))
	if !strings.Contains(output, "graphlint") {
		return fmt.Errorf("unexpected output: %s", output)
	}
	return nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
