package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/socialconnect/internal/config"
	"github.com/dropDatabas3/socialconnect/internal/http/v2/server"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/security/secretbox"
	"github.com/dropDatabas3/socialconnect/internal/store"

	// registro de providers y adapters vía init()
	_ "github.com/dropDatabas3/socialconnect/internal/providers/all"
	_ "github.com/dropDatabas3/socialconnect/internal/store/adapters/dal"
)

var version = "dev"

func main() {
	// .env es opcional
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "socialconnect",
		Short:         "Sign-in y connect con providers OAuth1/OAuth2",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", envOr("SOCIALCONNECT_CONFIG", ""), "Archivo YAML de configuración (env SOCIALCONNECT_CONFIG)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		logger.Init(logger.Config{
			Env:         cfg.App.Env,
			Level:       cfg.App.LogLevel,
			ServiceName: "socialconnect",
			Version:     version,
		})
		return cfg, nil
	}

	root.AddCommand(
		newServeCmd(load),
		newMigrateCmd(load),
		newKeygenCmd(),
		newEncryptCmd(load),
	)
	return root
}

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(logger.ToContext(ctx, logger.L()), cfg)
		},
	}
}

func newMigrateCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL embebidas al storage configurado",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
				Name: cfg.Storage.Driver,
				DSN:  cfg.Storage.DSN,
				Path: cfg.Storage.Path,
			})
			if err != nil {
				return err
			}
			defer conn.Close()

			mc, ok := conn.(store.MigratableConnection)
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "driver %s no usa migraciones\n", cfg.Storage.Driver)
				return nil
			}
			res, err := mc.Migrate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied=%v skipped=%v duration=%s\n", res.Applied, res.Skipped, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Genera una clave maestra (base64, 32 bytes) para " + secretbox.EnvMasterKey,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secretbox.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

func newEncryptCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Cifra un secreto de provider para usarlo como client_secret en el YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			value := ""
			if len(args) == 1 {
				value = args[0]
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				value = strings.TrimSpace(string(b))
			}
			if value == "" {
				return errors.New("encrypt: empty value")
			}
			codec, err := cfg.Codec(config.KeyConfig)
			if err != nil {
				return err
			}
			out, err := codec.Encrypt(value)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), config.EncryptedPrefix+out)
			return nil
		},
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
