package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stlalpha/shellview/internal/config"
)

// app carries what the subcommands share: the viper instance flags are
// bound to and the --config path.
type app struct {
	v       *viper.Viper
	cfgFile string
}

func (a *app) load() (*config.Config, error) {
	return config.Load(a.v, a.cfgFile)
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "shellview",
		Short: "Terminal client for remote shells over SSH",
		Long: `shellview opens an interactive shell on a remote host over SSH and renders
it in a scrollback view. Settings come from shellview.yaml, SHELLVIEW_*
environment variables and flags, in increasing priority.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./shellview.yaml or $HOME/.shellview/shellview.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.String("log-file", "", "write logs to this file")
	pf.String("log-level", "", "log level (trace, debug, info, warn, error)")

	a.v.BindPFlag("log.debug", pf.Lookup("debug"))
	a.v.BindPFlag("log.file", pf.Lookup("log-file"))
	a.v.BindPFlag("log.level", pf.Lookup("log-level"))

	root.AddCommand(newConnectCmd(a), newServeCmd(a), newHashPasswordCmd())
	return root
}
