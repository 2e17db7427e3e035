//go:build integration
// +build integration

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

const weekSeconds = 7 * 24 * 60 * 60

var firstWeek = time.Date(2020, 9, 6, 12, 0, 0, 0, time.UTC).Unix()

// fakeLastFM serves four weeks of charts for "army": an unrelated first
// week, then BTS every week after. Any other user does not exist.
func fakeLastFM(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")

		if q.Get("user") != "army" {
			fmt.Fprint(w, `{"error": 6, "message": "User not found"}`)
			return
		}

		switch q.Get("method") {
		case "user.getweeklychartlist":
			var charts []string
			for i := int64(0); i < 4; i++ {
				from := firstWeek + i*weekSeconds
				charts = append(charts, fmt.Sprintf(`{"from": "%d", "to": "%d"}`, from, from+weekSeconds))
			}
			fmt.Fprintf(w, `{"weeklychartlist": {"chart": [%s]}}`, strings.Join(charts, ","))
		case "user.getweeklytrackchart":
			from, _ := strconv.ParseInt(q.Get("from"), 10, 64)
			if from == firstWeek {
				fmt.Fprint(w, `{"weeklytrackchart": {"track": {"name": "Song", "artist": {"#text": "Someone"}, "playcount": "9"}}}`)
				return
			}
			fmt.Fprint(w, `{"weeklytrackchart": {"track": [
				{"name": "Dynamite", "artist": {"#text": "BTS"}, "album": {"#text": "BE"}, "playcount": "5"},
				{"name": "Alone", "artist": {"#text": "Jin"}, "playcount": "2"}
			]}}`)
		case "user.gettoptracks":
			fmt.Fprint(w, `{"toptracks": {"track": [
				{"name": "Dynamite", "artist": {"name": "BTS"}, "playcount": "40"},
				{"name": "Song", "artist": {"name": "Someone"}, "playcount": "60"}
			], "@attr": {"total": "2"}}}`)
		case "user.gettopartists":
			fmt.Fprint(w, `{"topartists": {"artist": [{"name": "BTS", "playcount": "40"}]}}`)
		case "user.gettopalbums":
			fmt.Fprint(w, `{"topalbums": {"album": [{"name": "BE", "artist": {"name": "BTS"}, "playcount": "40"}]}}`)
		case "user.getinfo":
			fmt.Fprint(w, `{"user": {"name": "army", "playcount": "100"}}`)
		default:
			fmt.Fprint(w, `{"error": 3, "message": "Invalid Method"}`)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func buildBinary(t *testing.T) string {
	t.Helper()

	bin := filepath.Join(t.TempDir(), "borahae_test")
	buildCmd := exec.Command("go", "build", "-o", bin, ".")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, out)
	}
	return bin
}

// testEnv isolates the binary from the user's config and points it at the
// fake Last.fm server
func testEnv(t *testing.T, baseURL, dataDir string) []string {
	t.Helper()
	return append(os.Environ(),
		"HOME="+t.TempDir(),
		"BORAHAE_LASTFM_API_KEY=test_key",
		"BORAHAE_LASTFM_BASE_URL="+baseURL,
		"BORAHAE_DATA_DIR="+dataDir,
	)
}

// TestTimelineCommand runs a full timeline build end to end
func TestTimelineCommand(t *testing.T) {
	bin := buildBinary(t)
	server := fakeLastFM(t)
	dataDir := t.TempDir()

	cmd := exec.Command(bin, "timeline", "army", "--json", "--save")
	cmd.Env = testEnv(t, server.URL, dataDir)
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("timeline command failed: %v", err)
	}

	var result struct {
		Mode     string `json:"mode"`
		Complete bool   `json:"complete"`
		Timeline struct {
			FirstPlay  time.Time `json:"firstPlay"`
			TotalPlays int       `json:"totalPlays"`
			Evolution  []struct {
				Plays int `json:"plays"`
			} `json:"evolution"`
		} `json:"timeline"`
	}
	if err := json.Unmarshal(output, &result); err != nil {
		t.Fatalf("failed to decode output: %v\n%s", err, output)
	}

	if result.Mode != "full" || !result.Complete {
		t.Errorf("expected complete full timeline, got %+v", result)
	}
	if result.Timeline.FirstPlay.Unix() != firstWeek+weekSeconds {
		t.Errorf("unexpected first play %v", result.Timeline.FirstPlay)
	}
	// Weeks 1 and 3 are sampled, 7 plays each
	if len(result.Timeline.Evolution) != 2 || result.Timeline.TotalPlays != 14 {
		t.Errorf("unexpected evolution %+v", result.Timeline)
	}

	if _, err := os.Stat(filepath.Join(dataDir, "snapshots.db")); err != nil {
		t.Errorf("Snapshot database not created: %v", err)
	}

	history := exec.Command(bin, "history", "army")
	history.Env = cmd.Env
	out, err := history.CombinedOutput()
	if err != nil {
		t.Fatalf("history command failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "14 plays, BE") {
		t.Errorf("unexpected history output:\n%s", out)
	}
}

// TestUnknownUser checks the exit status for a user Last.fm does not know
func TestUnknownUser(t *testing.T) {
	bin := buildBinary(t)
	server := fakeLastFM(t)

	cmd := exec.Command(bin, "profile", "nobody")
	cmd.Env = testEnv(t, server.URL, t.TempDir())
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected failure for unknown user, got:\n%s", out)
	}
	if !strings.Contains(string(out), "User not found") {
		t.Errorf("expected Last.fm error in output:\n%s", out)
	}
}

// TestDaemonLifecycle tests starting the daemon and stopping it with SIGINT
func TestDaemonLifecycle(t *testing.T) {
	bin := buildBinary(t)
	server := fakeLastFM(t)
	dataDir := t.TempDir()

	cmd := exec.Command(bin, "daemon", "--log-level", "debug")
	cmd.Env = append(testEnv(t, server.URL, dataDir),
		"BORAHAE_DAEMON_USERS=army,nobody",
		"BORAHAE_DAEMON_INTERVAL=1h",
	)

	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start daemon: %v", err)
	}

	// Wait for both users to be recorded
	stateFile := filepath.Join(dataDir, "state.json")
	deadline := time.Now().Add(10 * time.Second)
	for {
		data, err := os.ReadFile(stateFile)
		if err == nil && strings.Contains(string(data), `"nobody"`) {
			break
		}
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			t.Fatalf("State file not written in time: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Fatalf("Failed to signal daemon: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Daemon exited with error: %v", err)
		}
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		t.Error("Daemon did not stop within 5 seconds")
	}

	status := exec.Command(bin, "status")
	status.Env = cmd.Env
	out, err := status.CombinedOutput()
	if err != nil {
		t.Fatalf("status command failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "army") || !strings.Contains(string(out), "User not found") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}
