// Command glfc bulk-downloads Great Lakes Fishery Commission datasets used
// for offline feature engineering: sea lamprey barriers, lampricide
// treatments, and adult trapping records. Files land as JSON under the
// output directory, one per dataset.
//
// Usage:
//
//	go run ./cmd/glfc -out data/glfc
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const baseURL = "https://data.glfc.org/api"

type dataset struct {
	name string
	path string
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data/glfc", "output directory for downloaded datasets")
	flag.Parse()

	datasets := []dataset{
		{name: "barriers", path: "/barriers"},
		{name: "treatments", path: "/treatments"},
		{name: "treatments2015", path: "/treatments?since=2015"},
		{name: "trapping", path: "/trapping"},
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}

	// A single failed dataset should not abort the rest of the batch.
	var failures int
	for _, d := range datasets {
		dest := filepath.Join(*outDir, d.name+".json")
		if err := download(context.Background(), client, baseURL+d.path, dest); err != nil {
			log.Printf("%s: %v", d.name, err)
			failures++
			continue
		}
		log.Printf("wrote %s", dest)
	}

	if failures == len(datasets) {
		return fmt.Errorf("all %d downloads failed", failures)
	}
	if failures > 0 {
		log.Printf("completed with %d failure(s)", failures)
	}
	return nil
}

func download(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}

	return os.WriteFile(dest, body, 0o600)
}
