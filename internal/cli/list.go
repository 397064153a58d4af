package cli

import (
	"strings"

	"github.com/corvid-labs/hasp/internal/hashid"
	"github.com/spf13/cobra"
)

// NewListCommand builds `hasp list [namespace[:name]]`, a read-only
// consumer of the catalog's match queries. It is not part of the
// install-transaction engine; beyond what opening the session does
// (creating the home layout and catalog files and applying outstanding
// migrations), it performs no writes.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [namespace[:name]]",
		Short: "list installed packages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, args)
		},
	}
}

type listEntry struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Hash      string `json:"hash"`
}

func runList(cmd *cobra.Command, opts *RootOptions, args []string) error {
	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	defer sess.close()

	namespace, name := "", ""
	if len(args) == 1 {
		namespace, name = splitNamespaceName(args[0])
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}

	entries, err := listInstalled(cmd, sess, namespace, name)
	if err != nil {
		return WrapExitError(ExitFailure, "list failed", err)
	}
	return formatter.Success(entries)
}

func splitNamespaceName(arg string) (namespace, name string) {
	idx := strings.IndexByte(arg, ':')
	if idx < 0 {
		return "", arg
	}
	return arg[:idx], arg[idx+1:]
}

func listInstalled(cmd *cobra.Command, sess *session, namespace, name string) ([]listEntry, error) {
	dirs, err := sess.Catalog.ListInstalled(cmd.Context(), namespace, name)
	if err != nil {
		return nil, err
	}
	out := make([]listEntry, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, listEntry{
			Namespace: d.Namespace,
			Name:      d.Name,
			Version:   d.Version,
			Hash:      hashid.DirectoryHashFromUint64(d.Hash).String(),
		})
	}
	return out, nil
}
