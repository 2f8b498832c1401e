package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskdash/internal/config"
	"taskdash/internal/dashboard"
	"taskdash/internal/model"
	"taskdash/internal/store"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries the settings every subcommand reads.
type app struct {
	v          *viper.Viper
	configPath string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "taskdash",
		Short: "Meeting task dashboard: server, client and ops tools",
		Long: `taskdash serves the task dashboard and its JSON API, and drives a running
server from the command line.

Client settings resolve from flags, then TASKDASH_CLIENT_* variables, then the
client section of the config file.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.loadClientConfig() },
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "taskdash.yaml", "config file")
	pf.String("server", "http://localhost:8080", "taskdash server base URL")
	pf.Duration("timeout", 10*time.Second, "request timeout")
	_ = a.v.BindPFlag("client.server", pf.Lookup("server"))
	_ = a.v.BindPFlag("client.timeout", pf.Lookup("timeout"))

	a.v.SetEnvPrefix("TASKDASH")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(serveCmd(a))
	root.AddCommand(tasksCmd(a))
	root.AddCommand(projectsCmd(a))
	root.AddCommand(opsCmd(a))
	return root
}

// loadClientConfig reads the client section of the config file when there
// is one. A missing file is not an error.
func (a *app) loadClientConfig() error {
	if a.configPath == "" {
		return nil
	}
	if _, err := os.Stat(a.configPath); err != nil {
		return nil
	}
	a.v.SetConfigFile(a.configPath)
	a.v.SetConfigType("yaml")
	if err := a.v.ReadInConfig(); err != nil {
		return fmt.Errorf("read %s: %w", a.configPath, err)
	}
	return nil
}

func (a *app) serverConfig() (*config.Config, error) {
	return config.Load(a.configPath)
}

func (a *app) client() *store.Client {
	return store.NewClient(a.v.GetString("client.server"), a.v.GetDuration("client.timeout"))
}

// controller returns a dashboard controller writing through the API client.
func (a *app) controller(cmd *cobra.Command, target dashboard.AddTarget, onRefresh func([]model.Task)) (*dashboard.Controller, *store.Client) {
	c := a.client()
	return dashboard.NewController(c, dashboard.Options{
		AddTarget: target,
		Logger:    log.New(cmd.ErrOrStderr(), "", 0),
		OnRefresh: onRefresh,
	}), c
}
