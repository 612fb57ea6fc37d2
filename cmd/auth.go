package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"schemamirror/internal/config"
	"schemamirror/internal/security"
	"schemamirror/internal/ui"
)

var authDelete bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Store or remove the warehouse password for an environment",
	Long: `Save the Snowflake password for the selected environment in the system
keyring, or in an encrypted file under the config directory when no
keyring is available. Stored passwords are picked up automatically by
the other commands.`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)

	authCmd.Flags().BoolVar(&authDelete, "delete", false, "Remove the stored password instead")
}

func runAuth(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	env, ok := cfg.Environment(envName)
	if !ok {
		if envName == "" {
			return fmt.Errorf("no connection configured; create %s first", config.GetConfigFile())
		}
		return fmt.Errorf("environment %q not found in %s", envName, config.GetConfigFile())
	}

	cm, err := security.NewCredentialManager(config.GetConfigPath())
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	name := credentialName(env)

	if authDelete {
		if err := cm.Delete(name); err != nil {
			return fmt.Errorf("failed to remove stored password: %w", err)
		}
		ui.ShowSuccess("Removed stored password for " + name)
		return nil
	}

	password, err := ui.Password(fmt.Sprintf("Password for %s:", name))
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	if err := cm.Store(name, password); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}
	ui.ShowSuccess("Stored password for " + name)
	return nil
}
