package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dailypost/backend/internal/config"
	"github.com/dailypost/backend/internal/fetcher"
	"github.com/dailypost/backend/internal/generator"
	"github.com/dailypost/backend/internal/provider"
	"github.com/dailypost/backend/internal/storage"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// options carries the state shared by every subcommand. It is populated by
// the root command's PersistentPreRunE.
type options struct {
	configFile string
	envFile    string

	cfg *config.Config
	log *logrus.Entry
}

// NewRootCommand creates and returns the root cobra command for dailypost
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "dailypost",
		Short: "Publish one fresh LLM-written post per day",
		Long: `dailypost asks a language model for a short blog post, compares the draft
against the recent feed and regenerates it with a steering hint when it reads
too much like something already published.

Configuration is read from a YAML file, then overridden by environment
variables (a .env file is loaded first when present).`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "dailypost.yaml", "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the config")

	cmd.AddCommand(newGenerateCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newAtomCommand(opts))
	cmd.AddCommand(newServeCommand(opts))

	return cmd
}

func (o *options) load(logOut io.Writer) error {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return err
	}

	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	o.cfg = cfg
	o.log = newLogger(cfg.Log, logOut)
	return nil
}

// newGenerator wires storage, provider and fetcher from the loaded config
func (o *options) newGenerator() (*generator.Generator, error) {
	store, err := storage.NewFileStorage(o.cfg.Feed.Path)
	if err != nil {
		return nil, err
	}

	llm := provider.New(o.cfg.LLM, nil)
	f := fetcher.NewFetcher(o.cfg.Fetcher)

	return generator.NewGenerator(o.cfg, o.log, store, llm, f), nil
}

func newLogger(cfg config.LogConfig, out io.Writer) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(out)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger.WithField("service", "dailypost")
}
