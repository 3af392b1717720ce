package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/cli"
	"github.com/hyperjump/kiku/internal/models"
)

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kiku ask [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Retrieved chunks are printed as "Chunk 1", "Chunk 2", ... before the answer.

Examples:
  kiku ask quantas vagas tem o curso de medicina
  kiku ask -retrieve-only -k 10 "datas do vestibular"
  kiku ask -server "" -output json "qual o valor da inscrição"   # no server, load the index locally
`)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the index locally)")
	k := fs.Int("k", 0, "number of chunks to retrieve (0 = config top_k)")
	retrieveOnly := fs.Bool("retrieve-only", false, "print retrieved chunks without generating an answer")
	outputFormat := fs.String("output", "text", "output format: text or json")
	chunkChars := fs.Int("chunk-chars", 300, "truncate displayed chunks to this many characters (0 = whole)")
	hideChunks := fs.Bool("hide-chunks", false, "print only the answer")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		printAskUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	textOpts := cli.TextOptions{ChunkChars: *chunkChars, HideChunks: *hideChunks}

	if *serverURL != "" {
		if *retrieveOnly {
			result, err := retrieveViaHTTP(*serverURL, query, *k)
			exitOnErr("Retrieve failed", err)
			exitOnErr("Output failed", cli.WriteRetrieval(os.Stdout, result, format, textOpts))
			return
		}
		ans, err := answerViaHTTP(*serverURL, query)
		exitOnErr("Ask failed", err)
		exitOnErr("Output failed", cli.WriteAnswer(os.Stdout, ans, format, textOpts))
		return
	}

	// Local pipeline (when server is not running).
	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if *retrieveOnly {
		result, err := components.Pipeline.Retrieve(ctx, query, *k)
		exitOnErr("Retrieve failed", err)
		exitOnErr("Output failed", cli.WriteRetrieval(os.Stdout, result, format, textOpts))
		return
	}
	ans, err := components.Pipeline.Answer(ctx, query)
	exitOnErr("Ask failed", err)
	exitOnErr("Output failed", cli.WriteAnswer(os.Stdout, ans, format, textOpts))
}

func exitOnErr(prefix string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", prefix, err)
		os.Exit(1)
	}
}

var httpClient = &http.Client{Timeout: 3 * time.Minute}

func answerViaHTTP(serverURL, query string) (*models.Answer, error) {
	var ans models.Answer
	if err := postJSON(serverURL+"/api/v1/answer", map[string]string{"query": query}, &ans); err != nil {
		return nil, err
	}
	return &ans, nil
}

func retrieveViaHTTP(serverURL, query string, k int) (models.RetrievalResult, error) {
	var out struct {
		Retrieved models.RetrievalResult `json:"retrieved"`
	}
	body := map[string]interface{}{"query": query, "k": k}
	if err := postJSON(serverURL+"/api/v1/retrieve", body, &out); err != nil {
		return nil, err
	}
	return out.Retrieved, nil
}

func postJSON(url string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// responseError reports the server's {"error"} message, or the raw body.
func responseError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &e) == nil && e.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
}
