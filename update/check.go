package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	cacheFile     = "update_check.json"
	cacheTTL      = 24 * time.Hour
	checkInterval = 5 * time.Minute
)

func assetName() string {
	return BinaryName + "_" + runtime.GOOS + "_" + runtime.GOARCH
}

// CheckLatest asks the GitHub API for the newest release. It returns
// nil without error when this build is already current or is a dev
// build.
func CheckLatest(current string) (*Release, error) {
	if current == "dev" {
		return nil, nil
	}

	var payload struct {
		TagName string `json:"tag_name"`
		Assets  []struct {
			Name               string `json:"name"`
			BrowserDownloadURL string `json:"browser_download_url"`
		} `json:"assets"`
	}

	req, err := http.NewRequest("GET",
		fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", Repo), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api: %s", res.Status)
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}

	rel := Release{Version: payload.TagName}
	wantAsset := assetName()
	for _, a := range payload.Assets {
		switch a.Name {
		case wantAsset:
			rel.AssetURL = a.BrowserDownloadURL
		case "checksums.txt":
			rel.ChecksumURL = a.BrowserDownloadURL
		}
	}
	if rel.AssetURL == "" {
		return nil, fmt.Errorf("no asset %q in release %s", wantAsset, payload.TagName)
	}
	if !rel.NewerThan(current) {
		return nil, nil
	}
	return &rel, nil
}

// The on-disk check cache. An entry with an empty version is a cached
// "already current" answer and suppresses API calls for the TTL.
type checkState struct {
	Version     string `json:"version"`
	AssetURL    string `json:"asset_url"`
	ChecksumURL string `json:"checksum_url"`
	CheckedAt   int64  `json:"checked_at"`
}

func readCache(dir string) (*Release, bool) {
	var c checkState
	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if err != nil || json.Unmarshal(data, &c) != nil {
		return nil, false
	}
	if time.Unix(c.CheckedAt, 0).Add(cacheTTL).Before(time.Now()) {
		return nil, false
	}
	if c.Version == "" {
		return nil, true
	}
	rel := Release{Version: c.Version, AssetURL: c.AssetURL, ChecksumURL: c.ChecksumURL}
	return &rel, true
}

func writeCache(dir string, rel *Release) {
	c := checkState{CheckedAt: time.Now().Unix()}
	if rel != nil {
		c.Version, c.AssetURL, c.ChecksumURL = rel.Version, rel.AssetURL, rel.ChecksumURL
	}
	blob, err := json.Marshal(c)
	if err != nil {
		return
	}
	_ = os.MkdirAll(dir, 0755)
	_ = os.WriteFile(filepath.Join(dir, cacheFile), blob, 0644)
}

func checkCached(current, cacheDir string) (*Release, error) {
	if rel, ok := readCache(cacheDir); ok {
		return rel, nil
	}
	rel, err := CheckLatest(current)
	if err != nil {
		return nil, err
	}
	writeCache(cacheDir, rel)
	return rel, nil
}

// StartBackgroundCheck polls for updates on a slow tick, going through
// the cache so the API sees at most one request per TTL. notify runs on
// the poller goroutine each time a newer release is known.
func StartBackgroundCheck(current, cacheDir string, notify func(Release)) {
	if current == "dev" {
		return
	}
	go func() {
		for {
			if rel, err := checkCached(current, cacheDir); err == nil && rel != nil {
				notify(*rel)
			}
			time.Sleep(checkInterval)
		}
	}()
}
