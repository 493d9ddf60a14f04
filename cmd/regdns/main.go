// Command regdns adds, updates or deletes one DNS record at the registrar.
//
// It publishes DNS-01 challenge records:
//
//	regdns example.com "challenge-digest"
//	regdns --delete example.com
//
// and keeps a dynamic DNS record pointed at the current public IP:
//
//	regdns --ddns home.example.com
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Travis-Britz/regdns"
	"github.com/Travis-Britz/regdns/internal/kvstore"
	"github.com/Travis-Britz/regdns/internal/logging"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	flags := defaults()
	var configPath string

	cmd := &cobra.Command{
		Use:   "regdns [flags] DOMAIN [CONTENT]",
		Short: "Reconcile one DNS record at the registrar",
		Long: `Reconcile one DNS record at the registrar.

The record is <record_name>.DOMAIN. It is added when missing, updated when its
content differs, and removed with --delete. The registrar only accepts the full
record set of a domain, so every other record is fetched and submitted unchanged.

Options are read from a YAML config file, then from REGDNS_* environment variables,
then from flags; later sources win.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			return run(c, args, flags, configPath)
		},
	}
	bindFlags(cmd.Flags(), &flags)
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default: first of "+fmt.Sprint(configPaths())+")")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &regdns.ConfigError{Msg: err.Error()}
	})
	return cmd
}

func run(cmd *cobra.Command, args []string, flags rawConfig, configPath string) error {
	raw, configPath, err := loadConfig(cmd.Flags(), flags, configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(raw.LogFormat, raw.verbosity(), cmd.ErrOrStderr())
	if err != nil {
		return &regdns.ConfigError{Msg: err.Error()}
	}
	logger = logger.WithValues("runId", uuid.NewString())
	ctx := logr.NewContext(cmd.Context(), logger)
	cmd.SetContext(ctx)
	if configPath != "" {
		logger.V(1).Info("read config file", "path", configPath)
	}

	if raw.Password == "-" {
		if raw.Password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	s, err := derive(raw, args)
	if err != nil {
		return err
	}

	store, err := kvstore.Open(s.CachePath)
	if err != nil {
		return &regdns.CacheError{Op: "open", Err: err}
	}
	defer store.Close()
	if err := verifyPermissions(s.CachePath); err != nil {
		logger.Error(err, "cache file permissions are too broad")
	}

	opts := []regdns.Option{
		regdns.UsingRegistrarAPI(s.APIURL, s.APIVersion, s.Credentials),
		regdns.UsingCache(store),
		regdns.WithLogger(logger),
	}
	if s.Request.DDNS {
		resolver, err := regdns.ParseResolver(s.GetIP)
		if err != nil {
			return err
		}
		opts = append(opts, regdns.UsingResolver(resolver))
	}
	switch {
	case s.NoNS:
		opts = append(opts, regdns.WithoutTTLDiscovery())
	case s.Nameserver != "":
		opts = append(opts, regdns.UsingNameserver(s.Nameserver))
	}

	client, err := regdns.New(s.Domain, opts...)
	if err != nil {
		return err
	}
	logger.V(1).Info("reconciling record", "record", s.Request.Record.Name, "type", s.Request.Record.Type, "zone", client.Zone().String())

	if s.Interval > 0 {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		regdns.RunDaemon(ctx, client, s.Request, s.Interval, nil)
		return nil
	}
	_, err = client.Run(ctx, s.Request)
	return err
}

// exitCode reports the failure of cmd to stderr and returns the process exit code.
// Configuration errors print the usage and exit 2; anything else exits 1.
func exitCode(cmd *cobra.Command, err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var ce *regdns.ConfigError
	if errors.As(err, &ce) {
		fmt.Fprintf(stderr, "Error: %s\n\n", err)
		cmd.SetOut(stderr)
		cmd.Usage()
		return 2
	}
	logger, lerr := logr.FromContext(cmd.Context())
	if lerr != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return 1
	}
	logger.Error(err, "failed")
	return 1
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	executed, err := root.ExecuteC()
	if executed == nil {
		executed = root
	}
	os.Exit(exitCode(executed, err, os.Stderr))
}
