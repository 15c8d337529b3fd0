package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/donghaozhang/video-agent-skill-sub001/internal/config"
	vlog "github.com/donghaozhang/video-agent-skill-sub001/internal/log"
	"github.com/donghaozhang/video-agent-skill-sub001/pkg/version"
)

// ErrCancelled is returned by Execute when a run was interrupted.
var ErrCancelled = errors.New("run cancelled")

var rootCmd = &cobra.Command{
	Use:   "vagent",
	Short: "Declarative media generation pipelines",
	Long: `vagent runs YAML-defined content pipelines: chains of generation and
processing steps (text, image, video, audio) with typed hand-offs and
parallel groups.`,
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(stepsCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vagent %s\n", version.Version)
	},
}

// session is the loaded configuration plus the logging it set up.
type session struct {
	cfg     *config.Config
	ctx     context.Context
	logFile *os.File
}

func (s *session) Close() {
	if s.logFile != nil {
		s.logFile.Close()
	}
}

// setup loads .env, the layered config and initializes logging.
func setup(ctx context.Context, verbose bool) (*session, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logFile := openLogFile()
	if logFile != nil {
		vlog.Init(level, logFile)
	} else {
		vlog.Init(level, nil)
	}
	return &session{
		cfg:     cfg,
		ctx:     vlog.IntoContext(ctx, vlog.Logger()),
		logFile: logFile,
	}, nil
}

func openLogFile() *os.File {
	if err := os.MkdirAll(config.Dir, 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(config.Dir, "vagent.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return f
}
