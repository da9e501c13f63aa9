package tests

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"

	"pyrunner/internal/api"
	"pyrunner/internal/config"
	"pyrunner/internal/monitor"
	"pyrunner/internal/pipeline"
	"pyrunner/internal/result"
	"pyrunner/internal/script"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

// setupTestServer wires the full handler chain against a real pipeline.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Runner.ScratchRoot = t.TempDir()
	metrics := monitor.NewMetrics()
	p := pipeline.New(cfg, metrics, nil)

	mux := http.NewServeMux()
	handlers := api.NewHandlers(p, nil, metrics)
	mux.HandleFunc("POST /run", handlers.HandleRun)
	mux.HandleFunc("POST /generate", handlers.HandleGenerate)
	mux.HandleFunc("POST /export", handlers.HandleExport)
	mux.HandleFunc("GET /executions", handlers.HandleListExecutions)
	mux.HandleFunc("GET /executions/{id}", handlers.HandleGetExecution)

	ts := httptest.NewServer(api.RequestIDMiddleware(mux))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestGenerateEndToEnd(t *testing.T) {
	ts := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/generate", api.RunRequest{
		Code:    "print(name)\n",
		Items:   []pipeline.InputItem{{JSON: map[string]any{"name": "Test", "id": 1}}},
		EnvVars: map[string]string{"API_KEY": "secret123"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var gen api.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"#!/usr/bin/env python3",
		"import json",
		"import sys",
		`API_KEY = "secret123"`,
		"id = 1",
		`name = "Test"`,
		"# User code starts here",
		"print(name)",
	} {
		if !strings.Contains(gen.Script, want) {
			t.Errorf("generated script missing %q", want)
		}
	}
}

func TestRunEndToEnd(t *testing.T) {
	requirePython(t)
	ts := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/run", api.RunRequest{
		Code:    "print(json.dumps({\"sum\": a + b}))\n",
		Items:   []pipeline.InputItem{{JSON: map[string]any{"a": 2, "b": 40}}},
		Timeout: api.Duration{},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var payload result.Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if !payload.Result.Success {
		t.Fatalf("stderr: %s", payload.Result.Stderr)
	}
	if !payload.Result.StdoutParsed {
		t.Fatalf("stdout not parsed: %q", payload.Result.Stdout)
	}
	parsed := payload.Result.ParsedStdout.(map[string]any)
	if parsed["sum"] != float64(42) {
		t.Errorf("sum = %v, want 42", parsed["sum"])
	}
}

func TestRunWithOutputFiles(t *testing.T) {
	requirePython(t)
	ts := setupTestServer(t)

	code := "import os, json\n" +
		"with open(os.path.join(output_dir, 'data.json'), 'w') as f:\n" +
		"    json.dump({'ok': True}, f)\n"

	resp := postJSON(t, ts.URL+"/run", api.RunRequest{Code: code})
	defer resp.Body.Close()

	var payload result.Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if len(payload.OutputFiles) != 1 {
		t.Fatalf("got %d output files, want 1", len(payload.OutputFiles))
	}
	f := payload.OutputFiles[0]
	if f.MimeType != "application/json" {
		t.Errorf("MimeType = %q", f.MimeType)
	}
	if !strings.HasPrefix(f.BinaryKey, "output_") {
		t.Errorf("BinaryKey = %q", f.BinaryKey)
	}
	raw, err := base64.StdEncoding.DecodeString(f.Base64Data)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	if !strings.Contains(string(raw), `"ok"`) {
		t.Errorf("file content = %q", raw)
	}
}

func TestRunSyntaxErrorRejected(t *testing.T) {
	ts := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/run", api.RunRequest{Code: "def broken(:\n"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
	var errResp api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatal(err)
	}
	if errResp.Code != "GENERATION_ERROR" {
		t.Errorf("code = %q, want GENERATION_ERROR", errResp.Code)
	}
	if errResp.RequestID == "" {
		t.Error("request ID missing from error response")
	}
}

func TestExportEndToEnd(t *testing.T) {
	requirePython(t)
	ts := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/export", api.RunRequest{
		Code:    "print('exported')\n",
		EnvVars: map[string]string{"TOKEN": "supersecret"},
		Options: &script.Options{IncludeInputItems: true, EnableOutputDir: true},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var export api.ExportResponse
	if err := json.NewDecoder(resp.Body).Decode(&export); err != nil {
		t.Fatal(err)
	}
	if len(export.Files) != 2 {
		t.Fatalf("got %d files, want 2", len(export.Files))
	}

	scriptRaw, _ := base64.StdEncoding.DecodeString(export.Files[0].Base64Data)
	if strings.Contains(string(scriptRaw), "supersecret") {
		t.Error("export leaks credential value")
	}

	metaRaw, _ := base64.StdEncoding.DecodeString(export.Files[1].Base64Data)
	var meta map[string]any
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		t.Fatalf("metadata not valid JSON: %v", err)
	}
	info, ok := meta["export_info"].(map[string]any)
	if !ok {
		t.Fatal("export_info missing")
	}
	if info["format_version"] != "1.0" {
		t.Errorf("format_version = %v", info["format_version"])
	}
}

func TestListExecutionsWithoutDatabase(t *testing.T) {
	ts := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/executions")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status %d, want 503", resp.StatusCode)
	}
}
