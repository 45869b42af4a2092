package update

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Apply downloads the binary asset of rel, verifies it against the
// published checksum list and swaps it in place of the running
// executable.
func Apply(rel *Release) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	self, err = filepath.EvalSymlinks(self)
	if err != nil {
		return fmt.Errorf("resolve executable path: %w", err)
	}

	// Stage in the same directory so the final rename stays on one
	// filesystem.
	stage, err := os.CreateTemp(filepath.Dir(self), ".whisk-update-*")
	if err != nil {
		return fmt.Errorf("stage download: %w", err)
	}
	stagePath := stage.Name()
	defer os.Remove(stagePath)

	sum, err := download(rel.AssetURL, stage)
	stage.Close()
	if err != nil {
		return err
	}

	if rel.ChecksumURL != "" {
		want, err := publishedSum(rel.ChecksumURL, assetName())
		if err != nil {
			return err
		}
		if sum != want {
			return fmt.Errorf("checksum mismatch: have %s want %s", sum[:12], want[:12])
		}
	}

	if err := os.Chmod(stagePath, 0755); err != nil {
		return fmt.Errorf("mark executable: %w", err)
	}

	// Swap: running -> .old, staged -> running, drop .old. The first
	// rename keeps a rollback target if the second fails.
	backup := self + ".old"
	if err := os.Rename(self, backup); err != nil {
		return fmt.Errorf("set aside running binary: %w", err)
	}
	if err := os.Rename(stagePath, self); err != nil {
		_ = os.Rename(backup, self)
		return fmt.Errorf("swap in new binary: %w", err)
	}
	_ = os.Remove(backup)
	return nil
}

// download streams url into dst and returns the hex SHA-256 of the
// bytes written.
func download(url string, dst io.Writer) (string, error) {
	res, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch binary: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch binary: %s", res.Status)
	}

	src := io.Reader(res.Body)
	if res.ContentLength > 0 {
		src = &progressMeter{src: res.Body, size: res.ContentLength}
	}

	digest := sha256.New()
	if _, err := io.Copy(io.MultiWriter(dst, digest), src); err != nil {
		return "", fmt.Errorf("save binary: %w", err)
	}
	if res.ContentLength > 0 {
		fmt.Fprintln(os.Stderr)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

type progressMeter struct {
	src  io.Reader
	size int64
	got  int64
}

func (p *progressMeter) Read(b []byte) (int, error) {
	n, err := p.src.Read(b)
	p.got += int64(n)
	fmt.Fprintf(os.Stderr, "\r  %.0f%% (%d / %d KB)",
		float64(p.got)/float64(p.size)*100, p.got/1024, p.size/1024)
	return n, err
}

// publishedSum fetches the checksum list and returns the hex digest
// recorded for filename. Lines look like "<hash>  <filename>".
func publishedSum(url, filename string) (string, error) {
	res, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch checksum list: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("checksum list: %s", res.Status)
	}

	sc := bufio.NewScanner(res.Body)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 2 && fields[1] == filename {
			return fields[0], nil
		}
	}
	return "", fmt.Errorf("no checksum listed for %s", filename)
}
