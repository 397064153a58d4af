// Package registry provides the default adapter to the upstream package
// index: resolving a name and version requirement to a concrete version
// and downloading its source tarball. Like internal/build, this is an
// out-of-scope collaborator behind a narrow interface; the pipeline only
// depends on Client.
package registry

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/corvid-labs/hasp/internal/hashid"
)

// Resolved is one candidate version the registry index offers for a name.
type Resolved struct {
	Version  hashid.DirectoryVersion
	TarballURL string
}

// Client resolves a name/requirement against an upstream index and
// fetches the resulting tarball, extracting it into destDir.
type Client interface {
	Resolve(ctx context.Context, name string, req hashid.VersionReq) (Resolved, error)
	Fetch(ctx context.Context, r Resolved, destDir string) error
}

// HTTPClient is the default Client: a JSON index endpoint plus a
// streaming gzip+tar download.
type HTTPClient struct {
	IndexBaseURL string
	HTTP         *http.Client
}

// indexEntry mirrors the minimal shape an upstream index returns for one
// version of one package.
type indexEntry struct {
	Version    string `json:"version"`
	TarballURL string `json:"tarball_url"`
}

// Resolve is left to the caller's index protocol; here it performs a
// simple GET against IndexBaseURL and picks the matching entry.
func (c HTTPClient) Resolve(ctx context.Context, name string, req hashid.VersionReq) (Resolved, error) {
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.IndexBaseURL+"/"+name, nil)
	if err != nil {
		return Resolved{}, fmt.Errorf("build index request: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return Resolved{}, fmt.Errorf("query index for %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Resolved{}, fmt.Errorf("index for %s: unexpected status %s", name, resp.Status)
	}

	entries, err := decodeIndex(resp.Body)
	if err != nil {
		return Resolved{}, fmt.Errorf("decode index for %s: %w", name, err)
	}

	best, ok := pickBest(entries, req)
	if !ok {
		return Resolved{}, fmt.Errorf("no version of %s satisfies %q", name, req.String())
	}
	return best, nil
}

// Fetch downloads and extracts the tarball at r.TarballURL into destDir.
func (c HTTPClient) Fetch(ctx context.Context, r Resolved, destDir string) error {
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.TarballURL, nil)
	if err != nil {
		return fmt.Errorf("build tarball request: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("download tarball: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download tarball: unexpected status %s", resp.Status)
	}

	return extractTarGz(resp.Body, destDir)
}

func extractTarGz(r io.Reader, destDir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target := filepath.Join(destDir, filepath.Clean(hdr.Name))
		if err := requireWithinRoot(destDir, target); err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("mkdir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("mkdir parent of %s: %w", target, err)
			}
			if err := writeFile(target, tr, os.FileMode(hdr.Mode)); err != nil {
				return err
			}
		}
	}
}

func requireWithinRoot(root, target string) error {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return fmt.Errorf("resolve tar entry path: %w", err)
	}
	if rel == ".." || (len(rel) >= 3 && rel[:3] == "../") {
		return fmt.Errorf("tar entry escapes destination: %s", target)
	}
	return nil
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
