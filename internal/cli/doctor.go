package cli

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/config"
	"github.com/donghaozhang/video-agent-skill-sub001/internal/history"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check vagent prerequisites and configuration",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	allOK := true
	w := cmd.OutOrStdout()

	check := func(label string, ok bool, hint string) {
		if ok {
			fmt.Fprintf(w, "✅ %s\n", label)
		} else {
			fmt.Fprintf(w, "❌ %s: %s\n", label, hint)
			allOK = false
		}
	}

	cfg, cfgErr := config.Load(cmd.Context())
	check("config loadable", cfgErr == nil, fmt.Sprintf("fix config: %v", cfgErr))
	if cfgErr == nil {
		validateErr := cfg.Validate()
		check("config valid", validateErr == nil, fmt.Sprintf("%v", validateErr))

		_, err := exec.LookPath(cfg.Tools.FFmpeg)
		check("ffmpeg installed", err == nil, "install ffmpeg or set tools.ffmpeg (needed by concat_videos)")

		check(cfg.Provider.APIKeyEnv+" set", cfg.APIKey() != "",
			"set environment variable "+cfg.Provider.APIKeyEnv+" for media generation")
		check(cfg.Chat.APIKeyEnv+" set", cfg.ChatAPIKey() != "",
			"set environment variable "+cfg.Chat.APIKeyEnv+" for text_to_text steps")

		if _, err := loadCatalog(cfg); err != nil {
			check("model catalog loadable", false, err.Error())
		} else {
			check("model catalog loadable", true, "")
		}

		db, err := history.Open(cfg.HistoryDB)
		check("run history writable", err == nil, fmt.Sprintf("%v", err))
		if err == nil {
			db.Close()
		}
	}

	fmt.Fprintln(w)
	if allOK {
		fmt.Fprintln(w, "All checks passed. vagent is ready.")
	} else {
		fmt.Fprintln(w, "Some checks failed. Use --dry-run to try pipelines without providers.")
	}
	return nil
}
