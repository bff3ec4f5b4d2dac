package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/chainlink/internal/logging"
	"github.com/mesh-intelligence/chainlink/internal/sqlite"
)

// Export formats.
const (
	formatJSON  = "json"
	formatJSONL = "jsonl"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export all issues with labels and comments",
		Long: "Export writes every issue to a file, or to stdout when no file is\n" +
			"given. The format follows the file extension unless --format is set.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if len(args) == 1 && !cmd.Flags().Changed("format") &&
				strings.EqualFold(filepath.Ext(args[0]), ".jsonl") {
				format = formatJSONL
			}
			if format != formatJSON && format != formatJSONL {
				return userErrorf("invalid format %q (want json or jsonl)", format)
			}

			store, err := a.open()
			if err != nil {
				return err
			}
			data, err := store.ExportIssues()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				if format == formatJSONL {
					return sqlite.EncodeExportJSONL(cmd.OutOrStdout(), data)
				}
				return writeJSON(cmd.OutOrStdout(), data)
			}

			path := args[0]
			if format == formatJSONL {
				err = sqlite.WriteExportJSONL(path, data)
			} else {
				err = sqlite.WriteExportJSON(path, data)
			}
			if err != nil {
				return systemError(fmt.Errorf("writing %s: %w", path, err))
			}
			logging.Logger.Info("exported", "path", path, "issues", len(data.Issues), "export_id", data.ExportID)
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"path": path, "issues": len(data.Issues)})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d issue(s) to %s\n", len(data.Issues), path)
			return err
		},
	}
	cmd.Flags().StringP("format", "f", formatJSON, "output format: json or jsonl")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import issues from a json or jsonl export",
		Long: "Import creates new issues from an export. Issues get fresh ids;\n" +
			"parent links are remapped. Nothing is imported if any issue fails.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := sqlite.ReadExport(args[0])
			if err != nil {
				return userError(fmt.Errorf("reading %s: %w", args[0], err))
			}
			store, err := a.open()
			if err != nil {
				return err
			}
			idMap, err := store.ImportIssues(data)
			if err != nil {
				return err
			}
			logging.Logger.Info("imported", "path", args[0], "issues", len(idMap))
			return a.emit(cmd, idMapJSON(idMap), func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Imported %d issue(s)\n", len(idMap))
				return err
			})
		},
	}
}

// idMapJSON converts old→new ids to string keys for JSON output.
func idMapJSON(m map[int64]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out
}
