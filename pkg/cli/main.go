// Package cli builds the cobra command tree shared by crudkit services:
// serve, version, healthcheck and config validate/show.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/nimburion/crudkit/pkg/config"
	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/version"
)

// ServiceCommandOptions defines callbacks for service-specific logic.
type ServiceCommandOptions struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// Required: server startup logic
	RunServer func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: dependency health checks
	CheckDependencies func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: custom config validation, run after the built-in validation
	ValidateConfig func(cfg *config.Config) error

	// Optional: additional custom commands
	CustomCommands []*cobra.Command
}

// NewServiceCommand creates the root command. Running it without a
// subcommand is the same as serve.
func NewServiceCommand(opts ServiceCommandOptions) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = config.DefaultEnvPrefix
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath, serviceNameOverride string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config-file", "c", opts.ConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&serviceNameOverride, "service-name", "", "service name override")
	config.RegisterFlags(rootCmd.PersistentFlags())

	loadConfig := func(flags *pflag.FlagSet) (*config.Config, error) {
		cfg, err := LoadConfig(cfgPath, opts.EnvPrefix, flags, opts.ValidateConfig)
		if err != nil {
			return nil, err
		}
		cfg.Service.Name = resolveServiceNameValue(cfg.Service.Name, opts.Name, serviceNameOverride)
		return cfg, nil
	}
	loadConfigAndLogger := func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
		cfg, err := loadConfig(flags)
		if err != nil {
			return nil, nil, err
		}
		log, err := NewLogger(cfg)
		if err != nil {
			return nil, nil, err
		}
		return cfg, log, nil
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd.OutOrStdout(), version.Current(opts.Name))
		},
	})

	if opts.RunServer != nil {
		serveCmd := &cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP servers",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadConfigAndLogger(cmd.Flags())
				if err != nil {
					return err
				}
				return opts.RunServer(cmd.Context(), cfg, log)
			},
		}
		rootCmd.AddCommand(serveCmd)
		rootCmd.RunE = serveCmd.RunE
	}

	if opts.CheckDependencies != nil {
		rootCmd.AddCommand(&cobra.Command{
			Use:   "healthcheck",
			Short: "Check connectivity to MongoDB",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadConfigAndLogger(cmd.Flags())
				if err != nil {
					return err
				}
				if err := opts.CheckDependencies(cmd.Context(), cfg, log); err != nil {
					return fmt.Errorf("healthcheck failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			},
		})
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd.Flags()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML, credentials redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			out, err := formatConfig(cfg.Redacted())
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	})
	rootCmd.AddCommand(configCmd)

	for _, custom := range opts.CustomCommands {
		rootCmd.AddCommand(custom)
	}
	return rootCmd
}

// LoadConfig loads and validates the configuration, then runs the custom
// validator when given.
func LoadConfig(cfgPath, envPrefix string, flags *pflag.FlagSet, customValidator func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.NewViperLoader(cfgPath, envPrefix).WithFlags(flags).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if customValidator != nil {
		if err := customValidator(cfg); err != nil {
			return nil, fmt.Errorf("custom validation failed: %w", err)
		}
	}
	return cfg, nil
}

// NewLogger builds the zap logger described by cfg.
func NewLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.NewZapLogger(logger.Config{
		Level:  logger.LogLevel(strings.ToLower(cfg.Observability.LogLevel)),
		Format: logger.LogFormat(strings.ToLower(cfg.Observability.LogFormat)),
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	if strings.EqualFold(cfg.Observability.LogLevel, string(logger.DebugLevel)) {
		log.Debug("effective configuration", "config", fmt.Sprintf("%+v", *cfg.Redacted()))
	}
	return log, nil
}

// Execute runs the command and exits with a non-zero code on error.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printVersion(w io.Writer, info version.Info) error {
	_, err := fmt.Fprintf(w, "Service:    %s\nVersion:    %s\nCommit:     %s\nBuild Time: %s\n",
		info.Service, info.Version, info.Commit, info.BuildTime)
	return err
}

func formatConfig(cfg *config.Config) (string, error) {
	data, err := yaml.Marshal(toSettings(cfg))
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// toSettings renders durations as strings so the YAML reads back through
// the loader.
func toSettings(cfg *config.Config) map[string]any {
	return map[string]any{
		"platform": cfg.Platform,
		"service":  cfg.Service,
		"http": map[string]any{
			"port":             cfg.HTTP.Port,
			"read_timeout":     cfg.HTTP.ReadTimeout.String(),
			"write_timeout":    cfg.HTTP.WriteTimeout.String(),
			"idle_timeout":     cfg.HTTP.IdleTimeout.String(),
			"shutdown_timeout": cfg.HTTP.ShutdownTimeout.String(),
			"max_request_size": cfg.HTTP.MaxRequestSize,
		},
		"management": map[string]any{
			"enabled":       cfg.Management.Enabled,
			"port":          cfg.Management.Port,
			"read_timeout":  cfg.Management.ReadTimeout.String(),
			"write_timeout": cfg.Management.WriteTimeout.String(),
		},
		"database": map[string]any{
			"url":               cfg.Database.URL,
			"name":              cfg.Database.Name,
			"connect_timeout":   cfg.Database.ConnectTimeout.String(),
			"operation_timeout": cfg.Database.OperationTimeout.String(),
		},
		"observability": cfg.Observability,
	}
}

func resolveServiceNameValue(currentConfigName, defaultServiceName, serviceNameOverride string) string {
	if trimmed := strings.TrimSpace(serviceNameOverride); trimmed != "" {
		return trimmed
	}
	if trimmed := strings.TrimSpace(currentConfigName); trimmed != "" && trimmed != config.DefaultConfig().Service.Name {
		return trimmed
	}
	if trimmed := strings.TrimSpace(defaultServiceName); trimmed != "" {
		return trimmed
	}
	return config.DefaultConfig().Service.Name
}
