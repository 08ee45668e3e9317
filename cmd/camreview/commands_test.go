package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"camreview/internal/api"
	"camreview/internal/deps"
	"camreview/internal/logging"
	"camreview/internal/testsupport"
)

func TestScanListsQueueAndCounts(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteMedia(t, env.cfg.Paths.MediaRoot, "cam1/a.jpg", "b.mp4", "Keep_2024-01-01/old.jpg")

	out, _, err := runCLI(t, []string{"scan"}, env.configPath)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "cam1/a.jpg")
	requireContains(t, out, "b.mp4")
	requireContains(t, out, "2 total, 0 reviewed, 2 remaining")
	if strings.Contains(out, "old.jpg") {
		t.Fatalf("action folders should be skipped without --all: %s", out)
	}

	out, _, err = runCLI(t, []string{"scan", "--all", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("scan --all --json: %v", err)
	}
	var resp api.ItemsResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode scan json: %v\n%s", err, out)
	}
	if !resp.OK || len(resp.Items) != 3 || resp.Counts.Total != 3 {
		t.Fatalf("unexpected scan json %+v", resp)
	}

	// Read-only scans never create the ledger.
	if _, err := os.Stat(env.cfg.Paths.LedgerPath); !os.IsNotExist(err) {
		t.Fatalf("scan should not write the ledger, stat err=%v", err)
	}
}

func TestBatchTrashesEmptyImagesAndRecordsHistory(t *testing.T) {
	stub := llmStub(t, `{"critter": false, "confidence": 90}`)
	env := setupCLITestEnv(t, testsupport.WithLLM(stub.URL, "key"))
	testsupport.WriteMedia(t, env.cfg.Paths.MediaRoot, "a.jpg", "b.jpg", "clip.mp4")

	out, _, err := runCLI(t, []string{"batch", "--scope", "unreviewed"}, env.configPath)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	requireContains(t, out, "unreviewed")
	requireContains(t, out, "done")

	matches, err := filepath.Glob(filepath.Join(env.cfg.Paths.MediaRoot, "Trash_*", "*.jpg"))
	if err != nil || len(matches) != 2 {
		t.Fatalf("expected two trashed images, got %v (%v)", matches, err)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "batch")

	out, _, err = runCLI(t, []string{"history", "--json", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var hist api.HistoryResponse
	if err := json.Unmarshal([]byte(out), &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Entries) != 1 {
		t.Fatalf("expected one entry, got %+v", hist.Entries)
	}
}

func TestBatchRequiresCredentials(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteMedia(t, env.cfg.Paths.MediaRoot, "a.jpg")
	if _, _, err := runCLI(t, []string{"batch"}, env.configPath); err == nil {
		t.Fatal("expected batch to fail without an API key")
	}
}

func TestHistoryEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No history recorded")
}

func TestCheckReportsDependencies(t *testing.T) {
	stub := llmStub(t, `{"ok": true}`)
	env := setupCLITestEnv(t, testsupport.WithStubFFmpeg(), testsupport.WithLLM(stub.URL, "key"))

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Media root:")
	requireContains(t, out, "[OK] ")
	requireContains(t, out, "ffmpeg")
	requireContains(t, out, "Vision model:")
	if strings.Contains(out, "[ERROR]") {
		t.Fatalf("unexpected failure in %s", out)
	}
}

func TestCheckWithoutFFmpegOrKey(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMissingFFmpeg())
	if deps.NewFFmpegResolver(env.cfg.FFmpeg.Path, logging.NewNop()).Status().Available {
		t.Skip("ffmpeg installed in a common location")
	}

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("missing optional dependencies should only warn: %v", err)
	}
	requireContains(t, out, "[WARN] not found (generates preview frames")
	requireContains(t, out, "not configured")
}

func TestCheckFailsWithoutMediaRoot(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMissingFFmpeg())
	if err := os.Remove(env.cfg.Paths.MediaRoot); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, []string{"check", "--skip-llm"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail")
	}
	requireContains(t, out, "[ERROR]")
}
