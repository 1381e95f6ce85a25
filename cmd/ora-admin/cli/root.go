package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/r9s-ai/open-resource-api/internal/config"
	"github.com/r9s-ai/open-resource-api/internal/version"
)

const defaultTypesDir = "./types"

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	faintStyle = lipgloss.NewStyle().Faint(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func Run(args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ora-admin",
		Short:         "ORA admin CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newTypesCmd(),
		newValidateCmd(),
		newRequestCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte(version.Get().String() + "\n"))
			return err
		},
	}
}

// typesDirOptions is shared by every command that loads type files.
type typesDirOptions struct {
	cfgPath string
	dir     string
}

func addTypesDirFlags(cmd *cobra.Command, opts *typesDirOptions) {
	fs := cmd.Flags()
	fs.StringVarP(&opts.cfgPath, "config", "c", "ora.yaml", "config yaml path")
	fs.StringVar(&opts.dir, "dir", "", "types dir (default: registry.dir from config, else ./types)")
}

// resolve picks --dir, then registry.dir of an existing config, then the
// default.
func (o typesDirOptions) resolve() (string, error) {
	if d := strings.TrimSpace(o.dir); d != "" {
		return d, nil
	}
	cfg, err := loadConfigIfExists(o.cfgPath)
	if err != nil {
		return "", err
	}
	if cfg != nil && strings.TrimSpace(cfg.Registry.Dir) != "" {
		return strings.TrimSpace(cfg.Registry.Dir), nil
	}
	return defaultTypesDir, nil
}

func loadConfigIfExists(path string) (*config.Config, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, nil
	}
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return config.Load(p)
}
