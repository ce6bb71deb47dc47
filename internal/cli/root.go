// Package cli holds the theraia commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/petasbytes/theraia/internal/config"
	"github.com/petasbytes/theraia/internal/flows"
	"github.com/petasbytes/theraia/internal/log"
	"github.com/petasbytes/theraia/internal/provider"
	"github.com/petasbytes/theraia/internal/session"
	"github.com/petasbytes/theraia/internal/summarizer"
)

// app is shared by the subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config

	// newCompleter is swapped in tests.
	newCompleter func(*config.Config) (flows.Completer, error)
	stdin        io.Reader
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(&app{newCompleter: provider.NewCompleter, stdin: os.Stdin}, version)
}

func newRootCmd(a *app, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "theraia",
		Short: "Theraia - guided conversation sessions with a portable record",
		Long: `Theraia carries a user through an introduction, a conversation and a conclusion,
and hands back an obfuscated session record that resumes the next session.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (overrides THERAIA_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides THERAIA_LOG_LEVEL)")

	root.AddCommand(a.chatCmd())
	root.AddCommand(a.serveCmd())
	root.AddCommand(a.recordCmd())
	root.AddCommand(versionCmd(version))
	return root
}

// Execute runs the root command.
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	if a.configPath != "" {
		if err := os.Setenv("THERAIA_CONFIG", a.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Setup(cfg.Env, cfg.LogLevel, cmd.ErrOrStderr())
	if cfg.UsesDevKey() {
		log.Warn().Msg("using the built-in development cipher key; records are not protected")
	}
	a.cfg = cfg
	return nil
}

func (a *app) deps() (session.Deps, error) {
	codec, err := a.cfg.Codec()
	if err != nil {
		return session.Deps{}, err
	}
	c, err := a.newCompleter(a.cfg)
	if err != nil {
		return session.Deps{}, err
	}
	fl := flows.New(c, flows.WithTimeout(a.cfg.CollaboratorTimeout))
	return session.Deps{Flows: fl, Summarizer: summarizer.New(fl), Codec: codec}, nil
}
