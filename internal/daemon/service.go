package daemon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// ServiceLabel names the installed launchd agent and systemd unit
const ServiceLabel = "dev.borahae.daemon"

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinaryPath}}</string>
		<string>daemon</string>
		<string>--log-file</string>
		<string>{{.LogPath}}/borahae.log</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<dict>
		<key>SuccessfulExit</key>
		<false/>
	</dict>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}/borahae.err</string>
	<key>WorkingDirectory</key>
	<string>{{.WorkingDirectory}}</string>
	<key>EnvironmentVariables</key>
	<dict>
		<key>PATH</key>
		<string>/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin</string>
	</dict>
</dict>
</plist>
`

const systemdTemplate = `[Unit]
Description=borahae refresher daemon ({{.Label}})
Wants=network-online.target
After=network-online.target

[Service]
Type=simple
ExecStart={{.BinaryPath}} daemon --log-file {{.LogPath}}/borahae.log
WorkingDirectory={{.WorkingDirectory}}
Restart=on-failure
RestartSec=30

[Install]
WantedBy=default.target
`

// ServiceConfig holds the configuration for generating a service definition
type ServiceConfig struct {
	GOOS             string // darwin for launchd, linux for systemd
	BinaryPath       string
	LogPath          string
	WorkingDirectory string
}

// GenerateService renders the launchd plist or systemd unit for cfg.GOOS
func GenerateService(cfg ServiceConfig) (string, error) {
	var text string
	switch cfg.GOOS {
	case "darwin":
		text = plistTemplate
	case "linux":
		text = systemdTemplate
	default:
		return "", fmt.Errorf("service install is not supported on %s", cfg.GOOS)
	}

	tmpl, err := template.New("service").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse service template: %w", err)
	}

	data := struct {
		ServiceConfig
		Label string
	}{cfg, ServiceLabel}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute service template: %w", err)
	}

	return buf.String(), nil
}

// ServicePath returns where the service definition for goos is installed
func ServicePath(goos string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "LaunchAgents", ServiceLabel+".plist"), nil
	case "linux":
		return filepath.Join(home, ".config", "systemd", "user", ServiceLabel+".service"), nil
	default:
		return "", fmt.Errorf("service install is not supported on %s", goos)
	}
}

// DefaultLogPath returns the default directory for daemon logs
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".local", "share", "borahae", "logs"), nil
}
