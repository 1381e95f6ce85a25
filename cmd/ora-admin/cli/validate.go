package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/open-resource-api/pkg/registry"
)

func newValidateCmd() *cobra.Command {
	var opts typesDirOptions
	cmd := &cobra.Command{
		Use:   "validate [dir|file]",
		Short: "Validate a types dir or a single type file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.dir = args[0]
			}
			target, err := opts.resolve()
			if err != nil {
				return err
			}
			return runValidate(cmd.OutOrStdout(), target)
		},
	}
	addTypesDirFlags(cmd, &opts)
	return cmd
}

func runValidate(w io.Writer, target string) error {
	target = strings.TrimSpace(target)
	st, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("stat %q: %w", target, err)
	}
	if !st.IsDir() {
		t, err := registry.ParseTypeFile(target)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, okStyle.Render("ok:")+" type "+t.Name)
		return err
	}
	res, err := registry.ValidateTypesDir(target)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s types loaded=%d %s\n",
		okStyle.Render("ok:"), len(res.LoadedTypes), faintStyle.Render(strings.Join(res.LoadedTypes, ",")))
	return err
}
