package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/borahae/internal/daemon"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the borahae daemon as a user service",
	Long: `Install the borahae daemon as a launchd agent (macOS) or a systemd user
unit (Linux) that starts automatically on login.

This command will:
  - Generate the service definition for the daemon
  - Install it to ~/Library/LaunchAgents/ or ~/.config/systemd/user/
  - Load and start it with launchctl or systemctl --user

Configure daemon.users in ~/.config/borahae/config.yaml first.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the borahae daemon user service",
	Long: `Stop the borahae daemon and remove its launchd agent or systemd user unit.

Saved snapshots and state are kept.`,
	Args: cobra.NoArgs,
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	// Get the path to the current executable
	binaryPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	// Resolve symlinks to get the actual binary path
	binaryPath, err = filepath.EvalSymlinks(binaryPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	logPath, err := daemon.DefaultLogPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(logPath, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	content, err := daemon.GenerateService(daemon.ServiceConfig{
		GOOS:             runtime.GOOS,
		BinaryPath:       binaryPath,
		LogPath:          logPath,
		WorkingDirectory: home,
	})
	if err != nil {
		return err
	}

	servicePath, err := daemon.ServicePath(runtime.GOOS)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(servicePath), 0755); err != nil {
		return fmt.Errorf("failed to create service directory: %w", err)
	}

	// Replace an existing install
	if _, err := os.Stat(servicePath); err == nil {
		fmt.Println("Daemon is already installed. Reinstalling...")
		if err := unloadService(servicePath); err != nil {
			fmt.Printf("Warning: failed to unload existing daemon: %v\n", err)
		}
	}

	if err := os.WriteFile(servicePath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write service file: %w", err)
	}
	fmt.Printf("✓ Installed service to %s\n", servicePath)

	if err := loadService(servicePath); err != nil {
		return fmt.Errorf("failed to load daemon: %w", err)
	}

	fmt.Println("✓ Daemon loaded and started successfully")
	fmt.Printf("✓ Logs will be written to %s\n", logPath)
	fmt.Println("\nCheck the last refresh of each user with:")
	fmt.Println("  borahae status")
	fmt.Println("\nTo uninstall, run:")
	fmt.Println("  borahae uninstall")

	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	servicePath, err := daemon.ServicePath(runtime.GOOS)
	if err != nil {
		return err
	}

	if _, err := os.Stat(servicePath); os.IsNotExist(err) {
		fmt.Println("Daemon is not installed (service file not found)")
		return nil
	}

	fmt.Println("Stopping daemon...")
	if err := unloadService(servicePath); err != nil {
		fmt.Printf("Warning: failed to unload daemon: %v\n", err)
		fmt.Println("Continuing with service file removal...")
	} else {
		fmt.Println("✓ Daemon stopped")
	}

	if err := os.Remove(servicePath); err != nil {
		return fmt.Errorf("failed to remove service file: %w", err)
	}
	fmt.Printf("✓ Removed service from %s\n", servicePath)

	return nil
}

// loadService starts the installed service with the platform's manager
func loadService(servicePath string) error {
	switch runtime.GOOS {
	case "darwin":
		domain := fmt.Sprintf("gui/%d", os.Getuid())
		return runServiceCommand("launchctl", "bootstrap", domain, servicePath)
	default:
		if err := runServiceCommand("systemctl", "--user", "daemon-reload"); err != nil {
			return err
		}
		return runServiceCommand("systemctl", "--user", "enable", "--now", filepath.Base(servicePath))
	}
}

// unloadService stops the installed service with the platform's manager
func unloadService(servicePath string) error {
	switch runtime.GOOS {
	case "darwin":
		service := fmt.Sprintf("gui/%d/%s", os.Getuid(), daemon.ServiceLabel)
		return runServiceCommand("launchctl", "bootout", service)
	default:
		return runServiceCommand("systemctl", "--user", "disable", "--now", filepath.Base(servicePath))
	}
}

func runServiceCommand(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			return fmt.Errorf("%s failed: %s", name, output)
		}
		return fmt.Errorf("failed to run %s: %w", name, err)
	}
	return nil
}
