package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[general]\nregion = \"TR\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 4)
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- Watch(ctx, path, logger, func(c Config) { changes <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("[general]\nregion = \"DE\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.General.Region == "DE" {
				cancel()
				if err := <-done; err != nil {
					t.Fatalf("Watch returned %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}
