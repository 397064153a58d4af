package cli

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// goldenInstallSummary mirrors the JSON shape of install.go's
// installSummary, kept local to this test so the golden file documents
// the CLI's output contract independently of that type.
type goldenInstallSummary struct {
	Target   string   `json:"target"`
	Status   string   `json:"status"`
	Version  string   `json:"version,omitempty"`
	Hash     string   `json:"hash,omitempty"`
	Binaries []string `json:"binaries,omitempty"`
}

func TestInstallJSONOutputGolden(t *testing.T) {
	g := goldie.New(t)

	var buf bytes.Buffer
	formatter := &OutputFormatter{Format: "json", Writer: &buf}
	err := formatter.Success([]goldenInstallSummary{
		{Target: "cargo:ripgrep", Status: "installed", Version: "sem:13.0.0", Hash: "deadbeefcafef00d", Binaries: []string{"rg"}},
	})
	if err != nil {
		t.Fatalf("Success: %v", err)
	}

	g.Assert(t, "install_success", buf.Bytes())
}

func TestErrorJSONOutputGolden(t *testing.T) {
	g := goldie.New(t)

	var buf bytes.Buffer
	formatter := &OutputFormatter{Format: "json", Writer: &buf}
	err := formatter.Error("E_CATALOG", "catalog unavailable", "disk full")
	if err != nil {
		t.Fatalf("Error: %v", err)
	}

	g.Assert(t, "catalog_error", buf.Bytes())
}
