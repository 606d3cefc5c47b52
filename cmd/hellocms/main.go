// Command hellocms es el servidor y la herramienta de administración del CMS.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellocms/internal/config"
	"github.com/dropDatabas3/hellocms/internal/observability/logger"
)

var version = "dev"

type globals struct {
	configPath string
	envFile    string
	cfg        *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "hellocms",
		Short:         "Headless CMS: colecciones de records sobre SQL o key-value",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "archivo YAML de configuración (env CONFIG_PATH)")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "archivo .env a cargar antes de leer la configuración")

	root.AddCommand(
		newServeCmd(g),
		newMigrateCmd(g),
		newInstallCmd(g),
		newCollectionsCmd(g),
	)
	return root
}

// load lee .env (opcional), la configuración e inicializa el logger.
func (g *globals) load() error {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("env file %s: %w", g.envFile, err)
		}
	}
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	g.cfg = cfg
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "hellocms",
		Version:     version,
	})
	return nil
}
