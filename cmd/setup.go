package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"schemamirror/internal/config"
	"schemamirror/internal/security"
	"schemamirror/internal/ui"
	"schemamirror/pkg/models"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initial configuration setup",
	Run:   runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) {
	fmt.Println("Setting up SchemaMirror...")
	fmt.Println()

	if config.Exists() {
		overwrite, err := ui.Confirm("Configuration already exists. Do you want to overwrite it?", false)
		if err != nil || !overwrite {
			fmt.Println("Setup cancelled.")
			return
		}
	}

	cfg := &models.Config{}

	fmt.Println("Snowflake Connection")
	fmt.Println("--------------------")

	questions := []*survey.Question{
		{
			Name: "account",
			Prompt: &survey.Input{
				Message: "Snowflake Account (e.g., xy12345.us-east-1):",
			},
			Validate: survey.Required,
		},
		{
			Name: "username",
			Prompt: &survey.Input{
				Message: "Username:",
			},
			Validate: survey.Required,
		},
		{
			Name: "role",
			Prompt: &survey.Input{
				Message: "Role:",
				Default: "ACCOUNTADMIN",
			},
			Validate: survey.Required,
		},
		{
			Name: "warehouse",
			Prompt: &survey.Input{
				Message: "Warehouse:",
				Default: "COMPUTE_WH",
			},
			Validate: survey.Required,
		},
		{
			Name: "database",
			Prompt: &survey.Input{
				Message: "Default database:",
			},
		},
		{
			Name: "schema",
			Prompt: &survey.Input{
				Message: "Default schema:",
			},
		},
	}

	if err := survey.Ask(questions, &cfg.Snowflake); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// The password goes into the credential store, never the config file
	password, err := ui.Password("Password:")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if password != "" {
		cm, err := security.NewCredentialManager(config.GetConfigPath())
		if err == nil {
			err = cm.Store(credentialName(cfg.Snowflake), password)
		}
		if err != nil {
			ui.ShowWarning(fmt.Sprintf("Could not store password: %v", err))
		}
	}

	fmt.Println()
	fmt.Println("Report Exports")
	fmt.Println("--------------")

	exportPrompt := &survey.Input{
		Message: "Directory for CSV report exports (empty to disable):",
	}
	if err := survey.AskOne(exportPrompt, &cfg.Export.Directory); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		ui.ShowError(fmt.Errorf("failed to save configuration: %w", err))
		os.Exit(1)
	}

	fmt.Println()
	ui.ShowSuccess("Configuration saved to " + config.GetConfigFile())
	fmt.Println("Run 'schemamirror catalog databases' to verify the connection.")
}
