// Package fetcher downloads and extracts the MaStR dump archive from
// Zenodo, skipping work already on disk.
package fetcher

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/egon-data/mastr-geocoding/internal/config"
	"github.com/egon-data/mastr-geocoding/internal/mastr"
	"github.com/egon-data/mastr-geocoding/internal/resilience"
)

// DownloadDump ensures the dump ZIP is present and fully extracted under
// the configured data directory. Both steps are idempotent: an existing
// ZIP is not re-downloaded and extracted members are not re-written.
func DownloadDump(ctx context.Context, httpClient *http.Client, cfg config.MaStRConfig) error {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Minute}
	}

	log := zap.L().With(zap.String("component", "fetcher"))

	dumpRoot := filepath.Join(cfg.DataDir, "dump_"+cfg.DumpDate)
	if err := os.MkdirAll(dumpRoot, 0o755); err != nil {
		return eris.Wrapf(err, "fetcher: create dump dir %s", dumpRoot)
	}

	zipName := mastr.Format(cfg.ZipName, cfg.DumpDate)
	zipPath := filepath.Join(dumpRoot, zipName)
	zipURL := mastr.Format(cfg.URL, cfg.DepositID) + zipName

	if _, err := os.Stat(zipPath); err == nil {
		log.Info("dump archive already present, skipping download", zap.String("path", zipPath))
	} else {
		log.Info("downloading dump archive", zap.String("url", zipURL))
		retry := resilience.RetryConfig{
			MaxRetries: 3,
			Wait:       10 * time.Second,
			OnRetry:    resilience.RetryLogger("zenodo", "download"),
		}
		_, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, downloadFile(ctx, httpClient, zipURL, zipPath)
		})
		if err != nil {
			return eris.Wrapf(err, "fetcher: download %s", zipURL)
		}
		log.Info("download complete", zap.String("path", zipPath))
	}

	return extractMissing(zipPath, dumpRoot)
}

// downloadFile downloads a URL to a local file via a temp file so a
// partial download never passes the presence check of a later run.
func downloadFile(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "download"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("download returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return eris.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close() //nolint:errcheck
		return resilience.NewTransientError(eris.Wrap(err, "write file"), 0)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "close temp file")
	}

	return os.Rename(tmp.Name(), dest)
}

// extractMissing extracts members of the archive that are not yet on
// disk, preserving the archive's directory layout.
func extractMissing(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return eris.Wrapf(err, "fetcher: open %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	log := zap.L().With(zap.String("component", "fetcher"))

	var extracted int
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		destPath := filepath.Join(destDir, filepath.Clean(f.Name))
		if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return eris.Errorf("fetcher: archive member %q escapes destination", f.Name)
		}
		if _, err := os.Stat(destPath); err == nil {
			continue
		}

		if err := extractMember(f, destPath); err != nil {
			return err
		}
		extracted++
	}

	if extracted == 0 {
		log.Info("all archive members already extracted")
	} else {
		log.Info("extraction complete", zap.Int("files", extracted))
	}
	return nil
}

func extractMember(f *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return eris.Wrapf(err, "fetcher: create dir for %s", destPath)
	}

	rc, err := f.Open()
	if err != nil {
		return eris.Wrapf(err, "fetcher: open archive member %s", f.Name)
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return eris.Wrapf(err, "fetcher: create %s", destPath)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close() //nolint:errcheck
		return eris.Wrapf(err, "fetcher: extract %s", f.Name)
	}
	return out.Close()
}
