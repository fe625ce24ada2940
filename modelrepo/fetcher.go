package modelrepo

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gfurlani/fotocatalogo/config"
)

// Fetcher resolves model asset files against a frozen mirror, falling back
// to the upstream hub when the mirror lacks a file. Already-present files
// are never re-downloaded; the models directory is the source of truth.
type Fetcher struct {
	cfg  config.ModelsRepository
	http *http.Client
}

func NewFetcher(cfg config.ModelsRepository) *Fetcher {
	return &Fetcher{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Minute},
	}
}

// Ensure makes the named files of a model available locally, downloading
// what is missing. The model name resolves through the per-model subfolder
// map, like Config.ModelPath.
func (f *Fetcher) Ensure(ctx context.Context, model string, files ...string) error {
	sub, ok := f.cfg.Models[model]
	if !ok || sub == "" {
		sub = model
	}
	dir := filepath.Join(f.cfg.ModelsDir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model dir %s: %w", dir, err)
	}

	for _, file := range files {
		local := filepath.Join(dir, file)
		if _, err := os.Stat(local); err == nil {
			continue
		}
		if err := f.fetch(ctx, sub, file, local); err != nil {
			return fmt.Errorf("failed to fetch %s/%s: %w", model, file, err)
		}
	}
	return nil
}

// fetch tries the mirror first, then upstream, writing through a temp file
// so a partial download never shadows a model asset.
func (f *Fetcher) fetch(ctx context.Context, sub, file, local string) error {
	var sources []string
	if f.cfg.HuggingfaceRepo != "" {
		sources = append(sources, strings.TrimRight(f.cfg.HuggingfaceRepo, "/")+"/"+sub+"/"+file)
	}
	sources = append(sources, "https://huggingface.co/"+sub+"/resolve/main/"+file)

	var lastErr error
	for i, url := range sources {
		if i > 0 {
			log.Printf("modelrepo: mirror miss for %s/%s, trying upstream", sub, file)
		}
		if err := f.download(ctx, url, local); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (f *Fetcher) download(ctx context.Context, url, local string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	tmp := local + ".partial-" + uuid.NewString()
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, local); err != nil {
		os.Remove(tmp)
		return err
	}
	log.Printf("modelrepo: fetched %s", local)
	return nil
}
