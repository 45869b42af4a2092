// Package provision installs what the configured backend needs to run:
// the ggml model file, and the whisper-server binary for the server
// backend. Everything lands under the data dir so the binaries the
// user installs by hand are never touched.
package provision

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"whisk/config"
	"whisk/update"
)

// hasCUDA probes for an NVIDIA driver; swapped in tests.
var hasCUDA = func() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

// Run provisions for the given config: server binary first when the
// server backend is selected, then the model. Ctrl-C aborts cleanly
// without leaving partial files.
func Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ServerURL != "" {
		fmt.Println("server_url is set, transcription uses the external server, nothing to install")
		return nil
	}
	if cfg.Backend == "server" {
		path, err := EnsureServerBinary(ctx, cfg.Device)
		if err != nil {
			return fmt.Errorf("whisper-server: %w", err)
		}
		fmt.Printf("whisper-server ready: %s\n", path)
	}
	path, err := EnsureModel(ctx, cfg.Model)
	if err != nil {
		return fmt.Errorf("model: %w", err)
	}
	fmt.Printf("model ready: %s\n", path)
	return nil
}

// EnsureModel returns the local path of the configured model,
// downloading it into the models dir on first use. Explicit .bin paths
// are only checked, never fetched.
func EnsureModel(ctx context.Context, model string) (string, error) {
	path, err := config.ResolveModelPath(model)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	url, err := config.ModelURL(model)
	if err != nil {
		return "", fmt.Errorf("model file %s does not exist", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	fmt.Printf("downloading %s\n", filepath.Base(path))
	if err := download(ctx, url, path); err != nil {
		return "", err
	}
	return path, nil
}

// EnsureServerBinary returns the local path of whisper-server,
// downloading the build matching this machine on first use. The CUDA
// build is picked only when the config asks for cuda and a driver is
// actually present.
func EnsureServerBinary(ctx context.Context, device string) (string, error) {
	path, err := config.ServerBinaryPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	url := serverAssetURL(device)
	fmt.Printf("downloading %s\n", filepath.Base(url))
	tmp, err := os.CreateTemp(filepath.Dir(path), ".whisk-server-*.zip")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := download(ctx, url, tmpPath); err != nil {
		return "", err
	}
	if err := extractServer(tmpPath, path); err != nil {
		return "", err
	}
	return path, nil
}

func serverAssetURL(device string) string {
	variant := ""
	if device == "cuda" && hasCUDA() {
		variant = "-cuda"
	}
	return fmt.Sprintf("https://github.com/%s/releases/latest/download/whisper-server_%s_%s%s.zip",
		update.Repo, runtime.GOOS, runtime.GOARCH, variant)
}

// download fetches url into dest through a .partial neighbor, so an
// interrupted transfer never leaves a truncated file at the final name.
func download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: %s", url, resp.Status)
	}

	partial := dest + ".partial"
	f, err := os.Create(partial)
	if err != nil {
		return err
	}
	src := io.Reader(resp.Body)
	if resp.ContentLength > 0 {
		src = &progressReader{r: resp.Body, total: resp.ContentLength}
	}
	_, cerr := io.Copy(f, src)
	if resp.ContentLength > 0 {
		fmt.Fprintln(os.Stderr)
	}
	if err := f.Close(); cerr == nil {
		cerr = err
	}
	if cerr != nil {
		os.Remove(partial)
		return cerr
	}
	return os.Rename(partial, dest)
}

// extractServer pulls the server executable out of the release zip,
// wherever the archive nests it.
func extractServer(zipPath, dest string) error {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer zr.Close()

	want := filepath.Base(dest)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || filepath.Base(f.Name) != want {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
		if err != nil {
			rc.Close()
			return err
		}
		_, cerr := io.Copy(out, rc)
		rc.Close()
		if err := out.Close(); cerr == nil {
			cerr = err
		}
		if cerr != nil {
			os.Remove(dest)
			return cerr
		}
		return nil
	}
	return fmt.Errorf("no %s in %s", want, filepath.Base(zipPath))
}

type progressReader struct {
	r     io.Reader
	total int64
	read  int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	pct := float64(p.read) / float64(p.total) * 100
	fmt.Fprintf(os.Stderr, "\r  %.0f%% (%d / %d MB)", pct, p.read>>20, p.total>>20)
	return n, err
}
