package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	log "github.com/sirupsen/logrus"

	"github.com/Travis-Britz/cfddns"
)

type cli struct {
	app *kingpin.Application

	settings    *string
	nocolor     *bool
	verbose     *bool
	metricsFile *string

	shell      *kingpin.CmdClause
	autoupdate *kingpin.CmdClause
	ip         *string
	iface      *string
}

func newCLI() *cli {
	c := &cli{}
	c.app = kingpin.New("cfddns", "Keeps a Cloudflare DNS record pointed at the public IP address of this machine.")
	c.app.Version(cfddns.Version)
	c.app.HelpFlag.Short('h')

	c.settings = c.app.Flag("settings", "Path to the settings file.").Short('s').String()
	c.nocolor = c.app.Flag("nocolor", "Disable coloring.").Bool()
	c.verbose = c.app.Flag("verbose", "Enable verbose logging.").Short('v').Bool()
	c.metricsFile = c.app.Flag("metrics-file", "Write Prometheus metrics to this file after each command.").String()

	c.shell = c.app.Command("shell", "Start the interactive shell.").Default()
	c.autoupdate = c.app.Command("autoupdate", "Update the default record once, e.g. from a scheduler. Falls back to the shell on failure.")
	c.ip = c.autoupdate.Flag("ip", "Use this address instead of looking it up.").String()
	c.iface = c.autoupdate.Flag("interface", "Use the address assigned to this network interface.").String()
	return c
}

// apply lets flags override the environment.
func (c *cli) apply(cfg *config) {
	if *c.settings != "" {
		cfg.SettingsFile = *c.settings
	}
	if *c.nocolor {
		cfg.NoColor = "1"
	}
	if *c.verbose {
		cfg.Debug = true
	}
	if *c.metricsFile != "" {
		cfg.MetricsFile = *c.metricsFile
	}
}

func (c *cli) resolver(command string, cfg config) (cfddns.Option, error) {
	if command == c.autoupdate.FullCommand() {
		switch {
		case *c.ip != "" && *c.iface != "":
			return nil, fmt.Errorf("--ip and --interface cannot be used together")
		case *c.ip != "":
			return cfddns.UsingResolver(cfddns.FromString(*c.ip)), nil
		case *c.iface != "":
			return cfddns.UsingResolver(cfddns.InterfaceResolver(*c.iface)), nil
		}
	}
	return cfddns.UsingWebResolver(cfg.IPServiceURL), nil
}

func newLogger(out io.Writer, debug bool) *log.Logger {
	logger := log.New()
	logger.SetOutput(out)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	logger.SetLevel(log.WarnLevel)
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func main() {
	if err := loadDotEnv(); err != nil {
		log.Fatalf("error loading .env: %s", err)
	}
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := newCLI()
	c.app.Writer(stdout).ErrorWriter(stderr).UsageWriter(stdout)
	command, err := c.app.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "cfddns: error: %s, try --help\n", err)
		return 2
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "cfddns: %s\n", err)
		return 2
	}
	c.apply(&cfg)

	logger := newLogger(stderr, cfg.Debug)
	resolver, err := c.resolver(command, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "cfddns: error: %s, try --help\n", err)
		return 2
	}

	if cfg.SettingsFile == "" {
		if cfg.SettingsFile, err = cfddns.DefaultSettingsPath(); err != nil {
			logger.WithError(err).Error("no settings file")
			return 1
		}
	}
	store := cfddns.NewFileStore(cfg.SettingsFile)
	settings, err := store.Load()
	if err != nil {
		logger.WithError(err).Error("unable to load settings")
		return 1
	}
	logger.WithField("path", store.Path()).Debug("settings loaded")

	ui := newConsoleUI(stdout, cfg.NoColor != "")
	metrics := cfddns.NewMetrics()
	workflow, err := cfddns.New(&settings, store,
		resolver,
		cfddns.UsingCloudflareURL(cfg.APIURL),
		cfddns.WithTimeout(cfg.Timeout),
		cfddns.WithLogger(logger),
		cfddns.WithUI(ui),
		cfddns.WithMetrics(metrics),
	)
	if err != nil {
		logger.WithError(err).Error("invalid configuration")
		return 2
	}

	sh := &shell{
		workflow: workflow,
		ui:       ui,
		prompter: newLinePrompter(stdin, ui, currentUser()),
		logger:   logger,
		afterCommand: func() {
			if cfg.MetricsFile == "" {
				return
			}
			if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				logger.WithError(err).Warn("unable to write metrics")
			}
		},
	}

	ui.Banner()
	if command == c.autoupdate.FullCommand() {
		return sh.autoupdate(ctx)
	}
	return sh.interactive(ctx, false)
}
