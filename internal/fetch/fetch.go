// Package fetch downloads backend interpreter modules named by a manifest.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/caffeineduck/pagekit/bootstrap"
)

// ErrNoSource is returned for a backend whose module is missing and which
// declares no download URL.
var ErrNoSource = errors.New("backend has no source url")

// Installed reports whether the module file of b exists.
func Installed(b bootstrap.Backend) bool {
	_, err := os.Stat(b.Module)
	return err == nil
}

// Module downloads the module of b from its source URL unless the file is
// already present. It reports whether a download happened.
func Module(ctx context.Context, client *http.Client, logger *zap.Logger, b bootstrap.Backend) (bool, error) {
	if Installed(b) {
		return false, nil
	}
	if b.Source == "" {
		return false, fmt.Errorf("%s: %w", b.Token, ErrNoSource)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.Source, nil)
	if err != nil {
		return false, fmt.Errorf("%s: %w", b.Token, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: download: %w", b.Token, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%s: download failed: %s", b.Token, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(b.Module), 0755); err != nil {
		return false, fmt.Errorf("%s: %w", b.Token, err)
	}

	// A partial download must never take the module's place.
	tmp, err := os.CreateTemp(filepath.Dir(b.Module), filepath.Base(b.Module)+".*.part")
	if err != nil {
		return false, fmt.Errorf("%s: %w", b.Token, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return false, fmt.Errorf("%s: write module: %w", b.Token, err)
	}
	if err := os.Rename(tmp.Name(), b.Module); err != nil {
		return false, fmt.Errorf("%s: %w", b.Token, err)
	}

	logger.Info("module downloaded",
		zap.String("runtime", b.Token),
		zap.String("path", b.Module),
		zap.Int64("bytes", n))
	return true, nil
}

// All downloads every missing module of m and stops at the first failure.
func All(ctx context.Context, client *http.Client, logger *zap.Logger, m bootstrap.Manifest) error {
	for _, b := range m.Backends {
		if _, err := Module(ctx, client, logger, b); err != nil {
			return err
		}
	}
	return nil
}
