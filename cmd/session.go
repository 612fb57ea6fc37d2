package cmd

import (
	"context"
	"fmt"
	"os"

	"schemamirror/internal/catalog"
	"schemamirror/internal/config"
	"schemamirror/internal/report"
	"schemamirror/internal/security"
	"schemamirror/internal/ui"
	"schemamirror/pkg/models"
)

// resolveCatalogConfig builds the warehouse connection settings for the
// selected environment, resolving the password from the config file, the
// SNOWFLAKE_PASSWORD environment variable, the credential store, and
// finally an interactive prompt, in that order.
func resolveCatalogConfig() (catalog.Config, *models.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return catalog.Config{}, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	env, ok := cfg.Environment(envName)
	if !ok {
		if envName == "" {
			return catalog.Config{}, nil, fmt.Errorf("no connection configured; run 'schemamirror auth' or create %s", config.GetConfigFile())
		}
		return catalog.Config{}, nil, fmt.Errorf("environment %q not found in %s", envName, config.GetConfigFile())
	}

	password := env.Password
	if password == "" {
		password = os.Getenv("SNOWFLAKE_PASSWORD")
	}
	if password == "" {
		if cm, err := security.NewCredentialManager(config.GetConfigPath()); err == nil {
			if stored, err := cm.Get(credentialName(env)); err == nil {
				password = stored
			}
		}
	}
	if password == "" {
		password, err = ui.Password(fmt.Sprintf("Password for %s@%s:", env.Username, env.Account))
		if err != nil {
			return catalog.Config{}, nil, err
		}
	}

	catalogConfig := catalog.Config{
		Account:   env.Account,
		Username:  env.Username,
		Password:  password,
		Database:  env.Database,
		Schema:    env.Schema,
		Warehouse: env.Warehouse,
		Role:      env.Role,
	}

	if err := catalog.ValidateConfig(catalogConfig); err != nil {
		return catalog.Config{}, nil, fmt.Errorf("invalid connection settings: %w", err)
	}

	return catalogConfig, cfg, nil
}

// credentialName identifies a stored password in the credential store
func credentialName(env models.Snowflake) string {
	return fmt.Sprintf("%s@%s", env.Username, env.Account)
}

// connectClient resolves settings and opens the warehouse connection
func connectClient(ctx context.Context) (*catalog.Client, *models.Config, error) {
	catalogConfig, cfg, err := resolveCatalogConfig()
	if err != nil {
		return nil, nil, err
	}

	client := catalog.NewClient(catalogConfig)
	if err := client.Connect(ctx); err != nil {
		return nil, nil, err
	}

	return client, cfg, nil
}

// exporterFor returns a CSV exporter when an export directory is configured
// via flag or config file, or nil when exports are disabled
func exporterFor(cfg *models.Config) *report.Exporter {
	dir := exportDir
	if dir == "" && cfg != nil {
		dir = cfg.Export.Directory
	}
	if dir == "" {
		return nil
	}
	return report.NewExporter(dir)
}

// exportTable writes one table when exporting is enabled and prints the
// resulting path
func exportTable(exporter *report.Exporter, kind string, table report.Table) {
	if exporter == nil {
		return
	}
	path, err := exporter.Export(kind, table)
	if err != nil {
		ui.ShowWarning(fmt.Sprintf("Export failed: %v", err))
		return
	}
	ui.ShowInfo("Report written to " + path)
}
