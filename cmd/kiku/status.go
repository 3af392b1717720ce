package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/hyperjump/kiku/internal/cli"
	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/storage"
	"github.com/hyperjump/kiku/internal/vector"
)

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Ready          bool                   `json:"ready"`
	Records        int                    `json:"records"`
	Dimensions     int                    `json:"dimensions"`
	Metric         string                 `json:"metric"`
	BuildID        string                 `json:"build_id"`
	CreatedAt      string                 `json:"created_at,omitempty"`
	TopK           int                    `json:"top_k"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the index directory)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	exitOnErr("Status failed", err)

	var status *statusResponse
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
	} else {
		var cfg *config.Config
		cfg, _, err = loadConfig(*configPath)
		exitOnErr("Failed to load config", err)
		status, err = localStatus(context.Background(), cfg)
	}
	exitOnErr("Status failed", err)
	exitOnErr("Output failed", writeStatus(os.Stdout, status, format))
}

// localStatus reads build metadata from the persisted index without loading its vectors.
func localStatus(ctx context.Context, cfg *config.Config) (*statusResponse, error) {
	status := &statusResponse{
		TopK: cfg.Index.TopK,
		Config: map[string]interface{}{
			"index_path":          cfg.Index.Path,
			"embedding_provider":  cfg.Embedding.Provider,
			"generation_provider": cfg.Generation.Provider,
			"generation_model":    cfg.Generation.Model,
			"chunk_size":          cfg.Chunking.ChunkSize,
			"chunk_overlap":       cfg.Chunking.Overlap(),
			"max_context_chars":   cfg.Generation.MaxContextChars,
		},
	}
	if n, err := storage.DiskUsageBytes(cfg.Index.Path); err == nil {
		status.DiskUsageBytes = &n
	}
	store, err := storage.OpenSQLiteStore(filepath.Join(cfg.Index.Path, vector.DocumentsFile))
	if err != nil {
		// no index built yet
		return status, nil
	}
	defer store.Close()
	meta, err := store.ReadMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("read index metadata: %w", err)
	}
	status.Ready = meta.Dimensions == cfg.Embedding.Dimensions
	status.Records = meta.Count
	status.Dimensions = meta.Dimensions
	status.Metric = meta.Metric
	status.BuildID = meta.BuildID
	status.CreatedAt = meta.CreatedAt.Format(time.RFC3339)
	return status, nil
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := httpClient.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &status, nil
}

func writeStatus(w io.Writer, s *statusResponse, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Fprintf(w, "Ready:       %v\n", s.Ready)
	fmt.Fprintf(w, "Records:     %d\n", s.Records)
	fmt.Fprintf(w, "Dimensions:  %d\n", s.Dimensions)
	fmt.Fprintf(w, "Metric:      %s\n", s.Metric)
	if s.BuildID != "" {
		fmt.Fprintf(w, "Build:       %s (%s)\n", s.BuildID, s.CreatedAt)
	}
	fmt.Fprintf(w, "Top k:       %d\n", s.TopK)
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "Disk usage:  %d bytes\n", *s.DiskUsageBytes)
	}
	if path, ok := s.Config["index_path"]; ok {
		fmt.Fprintf(w, "Index path:  %v\n", path)
	}
	return nil
}
