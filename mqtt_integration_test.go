package main

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// buildBinary compiles the CLI into a temp dir
func buildBinary(t *testing.T) string {
	t.Helper()
	binaryPath := filepath.Join(t.TempDir(), "tilemesh-test")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	if output, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, output)
	}
	return binaryPath
}

// TestServiceStartupShutdown runs the built binary against a local broker
func TestServiceStartupShutdown(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test (set RUN_INTEGRATION_TESTS=1 to run)")
	}

	tmpDir := t.TempDir()
	configYAML := `mqtt:
  broker: "tcp://localhost:1883"
  clientId: "tilemesh-test"
  corpusTopic: "tilemesh-test/corpus"
  publishPrefix: "tilemesh-test"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	binaryPath := buildBinary(t)

	tests := []struct {
		name           string
		args           []string
		expectInOutput []string
		expectFailure  bool
		timeout        time.Duration
	}{
		{
			name: "successful startup with config",
			args: []string{"serve", "--mqtt", "--config=" + configPath, "--no-cache"},
			expectInOutput: []string{
				"tilemesh service running",
				"Subscribed topic: tilemesh-test/corpus",
				"tilemesh-test/result",
				"Press Ctrl+C to stop",
			},
			timeout: 5 * time.Second,
		},
		{
			name:           "missing config file",
			args:           []string{"serve", "--mqtt", "--config=nonexistent.yaml"},
			expectInOutput: []string{"config file not found"},
			expectFailure:  true,
			timeout:        2 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, binaryPath, tt.args...)
			output, err := cmd.CombinedOutput()
			outputStr := string(output)

			for _, expected := range tt.expectInOutput {
				if !strings.Contains(outputStr, expected) {
					t.Errorf("Expected output to contain '%s'.\nFull output:\n%s", expected, outputStr)
				}
			}
			if tt.expectFailure && err == nil {
				t.Error("Expected command to fail, but it succeeded")
			}
		})
	}
}

// TestServiceSignalHandling checks SIGINT shuts the watch service down
func TestServiceSignalHandling(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test (set RUN_INTEGRATION_TESTS=1 to run)")
	}

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("http:\n  port: 4041\n"), 0644); err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}
	corpus, err := os.ReadFile(examplePath)
	if err != nil {
		t.Fatal(err)
	}
	watched := filepath.Join(tmpDir, "corpus.txt")
	if err := os.WriteFile(watched, corpus, 0644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(buildBinary(t), "serve", "--watch", watched, "--config="+configPath, "--no-cache")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start service: %v", err)
	}

	started := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if strings.Contains(scanner.Text(), "Press Ctrl+C to stop") {
				close(started)
				break
			}
		}
		for scanner.Scan() {
		}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatal("service did not start")
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Fatalf("Failed to send SIGINT: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("service exited with error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Service did not shut down within timeout")
		if err := cmd.Process.Kill(); err != nil {
			t.Logf("Failed to kill process: %v", err)
		}
	}
}
