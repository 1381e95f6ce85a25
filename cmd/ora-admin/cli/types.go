package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/r9s-ai/open-resource-api/pkg/registry"
)

func newTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Inspect resource type files",
	}
	cmd.AddCommand(newTypesListCmd(), newTypesShowCmd())
	return cmd
}

func newTypesListCmd() *cobra.Command {
	var opts typesDirOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the types a directory loads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, res, err := loadRegistry(opts)
			if err != nil {
				return err
			}
			return printTypeList(cmd.OutOrStdout(), reg, res)
		},
	}
	addTypesDirFlags(cmd, &opts)
	return cmd
}

func newTypesShowCmd() *cobra.Command {
	var opts typesDirOptions
	cmd := &cobra.Command{
		Use:   "show <type>",
		Short: "Show the fields, relationships and labels of a type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := loadRegistry(opts)
			if err != nil {
				return err
			}
			t, ok := reg.Type(strings.TrimSpace(args[0]))
			if !ok {
				return fmt.Errorf("type %q not found", args[0])
			}
			return printType(cmd.OutOrStdout(), reg, t)
		},
	}
	addTypesDirFlags(cmd, &opts)
	return cmd
}

func loadRegistry(opts typesDirOptions) (*registry.Registry, registry.LoadResult, error) {
	dir, err := opts.resolve()
	if err != nil {
		return nil, registry.LoadResult{}, err
	}
	reg := registry.NewRegistry()
	res, err := reg.ReloadFromDir(dir)
	if err != nil {
		return nil, res, fmt.Errorf("load types from %q: %w", dir, err)
	}
	return reg, res, nil
}

func printTypeList(w io.Writer, reg *registry.Registry, res registry.LoadResult) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("types=%d", len(res.LoadedTypes))))
	b.WriteString("\n")
	for _, name := range reg.ListTypeNames() {
		t, _ := reg.Type(name)
		fmt.Fprintf(&b, "%s  fields=%d relationships=%d labels=%d\n",
			name, len(t.Fields), len(t.Relationships), len(t.Labels))
	}
	for _, f := range res.SkippedFiles {
		b.WriteString(errStyle.Render("skipped: "+f) + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func printType(w io.Writer, reg *registry.Registry, t *registry.Type) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(t.Name))
	if t.Path != "" {
		b.WriteString("  " + faintStyle.Render(t.Path))
	}
	b.WriteString("\n")

	if len(t.Fields) > 0 {
		b.WriteString("fields:\n")
	}
	for _, f := range t.Fields {
		typ := string(f.Type)
		if typ == "" {
			typ = "any"
		}
		var flags []string
		if f.Required {
			flags = append(flags, "required")
		}
		if f.ReadOnly {
			flags = append(flags, "read_only")
		}
		if f.Hidden {
			flags = append(flags, "hidden")
		}
		if f.Rules != "" {
			flags = append(flags, "rules="+f.Rules)
		}
		fmt.Fprintf(&b, "  %s %s %s\n", f.Name, typ, strings.Join(flags, " "))
	}

	if len(t.Relationships) > 0 {
		b.WriteString("relationships:\n")
	}
	for _, r := range t.Relationships {
		card := "to-one"
		if r.ToMany {
			card = "to-many"
		}
		fmt.Fprintf(&b, "  %s -> %s (%s)\n", r.Name, r.Type, card)
	}

	if len(t.Labels) > 0 {
		b.WriteString("labels:\n")
	}
	for _, name := range sortedKeys(t.Labels) {
		fmt.Fprintf(&b, "  %s = %s\n", name, t.Labels[name].Resolve())
	}

	b.WriteString("links:\n")
	tpl := reg.URLTemplates()
	for _, name := range sortedKeys(tpl[t.Name]) {
		fmt.Fprintf(&b, "  %s %s\n", name, faintStyle.Render(tpl[t.Name][name]))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
