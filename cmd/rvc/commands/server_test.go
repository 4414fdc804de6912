//go:build unix

package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/nadare881/rvc-webui/cmd/rvc/internal/config"
)

// configureServer writes a server.yaml whose command is a shell script.
// The script sees "--host <h> --port <p>" as $1..$4.
func configureServer(t *testing.T, script string) {
	t.Helper()
	ctxDir := setupContext(t)
	if err := config.SaveService(ctxDir, config.ServiceServer, &config.Server{
		Command: config.Argv{"/bin/sh", "-c", script, "sh"},
	}); err != nil {
		t.Fatal(err)
	}
}

func TestServerLifecycle(t *testing.T) {
	setupTestEnv(t)
	configureServer(t, `echo "listening on $2:$4"; exec sleep 30`)

	out := mustRun(t, "server", "start", "--port", "7301")
	if !strings.Contains(out, "start server") {
		t.Fatalf("start output: %s", out)
	}
	t.Cleanup(func() { runCmd(t, "server", "stop", "--port", "7301", "--grace", "100ms") })

	_, stderr, code := runCmd(t, "server", "start", "--port", "7301")
	if code == 0 || !strings.Contains(stderr, "already running") {
		t.Fatalf("second start: exit %d, %s", code, stderr)
	}

	out = mustRun(t, "server", "status", "--port", "7301", "--format", "json")
	if !strings.Contains(out, `"running": true`) || !strings.Contains(out, `"port": "7301"`) {
		t.Fatalf("status output: %s", out)
	}

	out = mustRun(t, "server", "list")
	if !strings.Contains(out, "127.0.0.1:7301") || !strings.Contains(out, "running") {
		t.Fatalf("list output: %s", out)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		out = mustRun(t, "server", "logs", "--port", "7301")
		if strings.Contains(out, "listening on 127.0.0.1:7301") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("logs never showed the banner: %q", out)
		}
		time.Sleep(20 * time.Millisecond)
	}

	out = mustRun(t, "server", "stop", "--port", "7301")
	if !strings.Contains(out, "stopped server 127.0.0.1:7301") {
		t.Fatalf("stop output: %s", out)
	}

	_, stderr, code = runCmd(t, "server", "status", "--port", "7301")
	if code == 0 || !strings.Contains(stderr, "not found") {
		t.Fatalf("status after stop: exit %d, %s", code, stderr)
	}
	if out := mustRun(t, "server", "list"); !strings.Contains(out, "No servers recorded") {
		t.Fatalf("list after stop: %s", out)
	}
}

func TestServerStartWaitTimesOut(t *testing.T) {
	setupTestEnv(t)
	configureServer(t, `exec sleep 30`)

	_, stderr, code := runCmd(t, "server", "start", "--port", "1", "--wait", "--timeout", "200ms")
	t.Cleanup(func() { runCmd(t, "server", "stop", "--port", "1", "--grace", "100ms") })
	if code == 0 || !strings.Contains(stderr, "did not come up") {
		t.Fatalf("start --wait: exit %d, %s", code, stderr)
	}
}

func TestServerStopUnknown(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "server", "stop", "--port", "7399")
	if code == 0 || !strings.Contains(stderr, "not found") {
		t.Fatalf("stop unknown: exit %d, %s", code, stderr)
	}
}
