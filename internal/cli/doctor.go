package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// NewDoctorCommand builds `hasp doctor`, a read-only health report: it
// opens the catalog and journal (surfacing any "upgrade required" error)
// and scans the cache for orphaned install-<uuid> staging parents left
// behind by a crash mid-pipeline (spec §9's accepted, unrecovered crash
// window). Beyond what opening the session does (creating the home
// layout and catalog files and applying outstanding migrations), it
// performs no writes.
func NewDoctorCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "report catalog and install-tree health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, opts)
		},
	}
}

type doctorReport struct {
	HomeDir        string   `json:"home_dir"`
	CatalogOK      bool     `json:"catalog_ok"`
	OrphanedStaged []string `json:"orphaned_staged,omitempty"`
}

func runDoctor(cmd *cobra.Command, opts *RootOptions) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	sess, err := openSession(opts)
	if err != nil {
		formatter.Error("E_CATALOG", "catalog unavailable", err.Error())
		return formatter.Success(doctorReport{CatalogOK: false})
	}
	defer sess.close()

	orphans, err := findOrphanedStaging(sess.Home.CacheDir)
	if err != nil {
		return WrapExitError(ExitFailure, "scan for orphaned staging directories failed", err)
	}

	return formatter.Success(doctorReport{
		HomeDir:        sess.Home.Dir,
		CatalogOK:      true,
		OrphanedStaged: orphans,
	})
}

// findOrphanedStaging lists top-level "install-<uuid>" directories
// directly under cacheDir: each is the temp parent one install attempt
// staged its fetch/install-new/install-old subdirectories under
// (pipeline.Fetcher.Fetch, pipeline.stagingLayout). A surviving one is
// evidence of a crash before Installer.Install's deferred cleanup ran.
// It never removes anything; an operator re-runs the install (which
// picks a fresh staging parent) and can then delete the orphan by hand.
func findOrphanedStaging(cacheDir string) ([]string, error) {
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var orphans []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "install-") {
			orphans = append(orphans, filepath.Join(cacheDir, e.Name()))
		}
	}
	return orphans, nil
}
