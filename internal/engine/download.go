package engine

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// LoadWithAutoDownload loads the classifier, fetching missing artifacts first.
// model.onnx and tokenizer.json are downloaded into cfg.ModelDir from the
// configured URLs when absent; an absent artifact with no URL is a load error.
func LoadWithAutoDownload(cfg Config) (*Engine, error) {
	artifacts := []struct {
		name string
		url  string
	}{
		{"model.onnx", cfg.ModelURL},
		{"tokenizer.json", cfg.TokenizerURL},
	}

	for _, a := range artifacts {
		path := filepath.Join(cfg.ModelDir, a.name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if a.url == "" {
			return nil, fmt.Errorf("artifact %s not found at %s and no download URL provided", a.name, path)
		}

		slog.Info("Artifact not found, downloading", "artifact", a.name, "url", a.url, "path", path)
		if err := os.MkdirAll(cfg.ModelDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create model directory: %w", err)
		}
		if err := downloadFile(a.url, path); err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", a.name, err)
		}
		slog.Info("Artifact downloaded", "artifact", a.name, "path", path)
	}

	return Load(cfg)
}

// downloadFile fetches url into path, logging progress every 10 seconds for
// large artifacts. The file is written via a temp name and renamed on success
// so a partial download never passes the os.Stat check above.
func downloadFile(url, path string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	tmp := path + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer out.Close()

	size := resp.ContentLength
	start := time.Now()
	var downloaded int64

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-ticker.C:
				mb := float64(downloaded) / 1024 / 1024
				if size > 0 {
					slog.Info("Download progress",
						"progress_percent", fmt.Sprintf("%.1f", float64(downloaded)/float64(size)*100),
						"downloaded_mb", fmt.Sprintf("%.1f", mb),
						"file", path)
				} else {
					slog.Info("Download progress", "downloaded_mb", fmt.Sprintf("%.1f", mb), "file", path)
				}
			case <-done:
				return
			}
		}
	}()

	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			downloaded += int64(n)
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}

	slog.Info("Download completed",
		"size_mb", fmt.Sprintf("%.1f", float64(downloaded)/1024/1024),
		"duration", time.Since(start).Round(time.Second).String(),
		"file", path)
	return nil
}
