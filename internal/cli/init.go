package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/assets"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/config"
)

var initProject bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize vagent configuration",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initProject, "project", false, "Write .vagent/config.yaml in the current directory instead of the home directory")
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir := config.ProjectDir()
	if !initProject {
		configDir = config.UserDir()
		if configDir == "" {
			return fmt.Errorf("could not determine home directory")
		}
	}
	if err := os.MkdirAll(filepath.Join(configDir, "pipelines"), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	w := cmd.OutOrStdout()
	configPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(w, "Config already exists: %s\n", configPath)
		return nil
	}
	if err := os.WriteFile(configPath, assets.ConfigTemplate(), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Created %s\n", configPath)
	fmt.Fprintf(w, "Custom pipelines go in %s\n", filepath.Join(configDir, "pipelines"))
	fmt.Fprintln(w, "Set FAL_KEY and OPENROUTER_API_KEY for provider access.")
	return nil
}
