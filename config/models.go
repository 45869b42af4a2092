package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Model catalog. Keys are what users put in the config; files are the
// upstream whisper.cpp ggml conversions, trading size for accuracy.
var modelCatalog = map[string]string{
	"normal": "ggml-large-v3-turbo-q5_0.bin",
	"pro":    "ggml-large-v3-turbo-q8_0.bin",
	"ultra":  "ggml-large-v3-turbo.bin",
}

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

func ModelKeys() []string {
	return []string{"normal", "pro", "ultra"}
}

func ModelFile(key string) (string, bool) {
	f, ok := modelCatalog[key]
	return f, ok
}

func ModelURL(key string) (string, error) {
	f, ok := modelCatalog[key]
	if !ok {
		return "", fmt.Errorf("unknown model %q", key)
	}
	return modelBaseURL + f + "?download=true", nil
}

// ServerBinaryPath is where `whisk setup` installs whisper-server.
func ServerBinaryPath() (string, error) {
	dir, err := BinDir()
	if err != nil {
		return "", err
	}
	name := "whisper-server"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), nil
}

// ResolveModelPath turns the config "model" value into a file path. A value
// with a path separator or a .bin extension is taken as an explicit path;
// otherwise it must be a catalog key resolving under the models dir.
func ResolveModelPath(model string) (string, error) {
	if strings.ContainsAny(model, `/\`) || filepath.Ext(model) == ".bin" {
		return model, nil
	}
	f, ok := modelCatalog[model]
	if !ok {
		return "", fmt.Errorf("unknown model %q (want normal, pro, ultra or a .bin path)", model)
	}
	dir, err := ModelsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, f), nil
}
