package update

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseSemver(t *testing.T) {
	good := map[string]semver{
		"4.5.6":           {4, 5, 6},
		"v0.3.9":          {0, 3, 9},
		"v2.0.1-dirty":    {2, 0, 1},
		"v1.7.0-rc2+meta": {1, 7, 0},
	}
	for in, want := range good {
		got, err := parseSemver(in)
		if err != nil {
			t.Errorf("parseSemver(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("parseSemver(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"dev", "", "1.2", "1.2.x", "a.b.c"} {
		if _, err := parseSemver(in); err == nil {
			t.Errorf("parseSemver(%q) did not fail", in)
		}
	}
}

func TestReleaseNewerThan(t *testing.T) {
	cases := []struct {
		release, current string
		want             bool
	}{
		{"v1.5.0", "v1.4.2", true},
		{"v2.0.0", "v1.9.9", true},
		{"v1.4.3", "v1.4.2-dirty", true},
		{"v1.4.2", "v1.4.2", false},
		{"v1.4.1", "v1.4.2", false},
		{"v1.4.2", "dev", false},
		{"garbage", "v1.4.2", false},
	}
	for _, c := range cases {
		if got := (Release{Version: c.release}).NewerThan(c.current); got != c.want {
			t.Errorf("Release{%q}.NewerThan(%q) = %v, want %v", c.release, c.current, got, c.want)
		}
	}
}

func TestCheckCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()

	rel := &Release{
		Version:     "v0.2.0",
		AssetURL:    "https://example.com/whisk",
		ChecksumURL: "https://example.com/checksums.txt",
	}
	writeCache(dir, rel)
	cached, ok := readCache(dir)
	if !ok || cached == nil {
		t.Fatalf("readCache = %v, %v after writing a release", cached, ok)
	}
	if *cached != *rel {
		t.Errorf("cache round-trip = %+v, want %+v", cached, rel)
	}
}

func TestCheckCacheRemembersNoUpdate(t *testing.T) {
	dir := t.TempDir()

	writeCache(dir, nil)
	cached, ok := readCache(dir)
	if !ok {
		t.Fatal("a cached no-update answer should count as a cache hit")
	}
	if cached != nil {
		t.Errorf("no-update entry read back as %+v, want nil release", cached)
	}
}

func TestCheckCacheIgnoresGarbage(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, cacheFile), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := readCache(dir); ok {
		t.Error("corrupt cache file treated as a hit")
	}

	if _, ok := readCache(filepath.Join(dir, "missing")); ok {
		t.Error("missing cache file treated as a hit")
	}
}
