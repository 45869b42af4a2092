//go:build !whisper

package backend

import "fmt"

// Builds without the whisper tag carry no native bindings. The local
// backend fails at load time; the server backend is unaffected.
func defaultLoader(_ string) (Model, error) {
	return nil, fmt.Errorf("built without whisper support (rebuild with -tags whisper to use backend: model)")
}
