package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campusclock/campusclock/internal/profile"
	"github.com/campusclock/campusclock/plugin/ai"
	"github.com/campusclock/campusclock/plugin/ai/ocr"
	"github.com/campusclock/campusclock/plugin/ai/reasoning"
	"github.com/campusclock/campusclock/server"
	"github.com/campusclock/campusclock/store"
	"github.com/campusclock/campusclock/store/db"
)

const greetingBanner = `
  ___                             ___ _         _
 / __|__ _ _ __  _ __ _  _ ___   / __| |___  __| |__
| (__/ _' | '  \| '_ \ || (_-<  | (__| / _ \/ _| / /
 \___\__,_|_|_|_| .__/\_,_/__/   \___|_\___/\__|_\_\
                |_|
`

var rootCmd = &cobra.Command{
	Use:   "campusclock",
	Short: "A student timetable manager with photo import and smart alarms",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: "0.1.0",
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			return fmt.Errorf("failed to create db driver: %w", err)
		}

		normalizer := store.NewNormalizer(store.NormalizerConfig{
			FreePeriodGapMinutes:  instanceProfile.FreePeriodGapMinutes,
			ConsecutiveGapMinutes: instanceProfile.ConsecutiveGapMinutes,
		})
		st := store.New(dbDriver, normalizer)

		var analyzer *ocr.Analyzer
		var alarms *reasoning.AlarmAdvisor
		var transitions *reasoning.TransitionAdvisor
		if instanceProfile.IsAIEnabled() {
			provider, err := ai.NewProvider(&ai.Config{
				BaseURL:     instanceProfile.AIBaseURL,
				APIKey:      instanceProfile.AIAPIKey,
				ChatModel:   instanceProfile.AIChatModel,
				VisionModel: instanceProfile.AIVisionModel,
			})
			if err != nil {
				return fmt.Errorf("failed to create AI provider: %w", err)
			}
			analyzer = ocr.NewAnalyzer(provider)
			alarms = reasoning.NewAlarmAdvisor(provider)
			transitions = reasoning.NewTransitionAdvisor(provider)
		}

		// Interface-typed nils would defeat the server's AI checks, so
		// pass the concrete values only when configured.
		srv, err := newServer(instanceProfile, st, analyzer, alarms, transitions)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		fmt.Print(greetingBanner, "\n")
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("server exited with error: %w", err)
		}
		return nil
	},
}

func newServer(p *profile.Profile, st *store.Store, analyzer *ocr.Analyzer, alarms *reasoning.AlarmAdvisor, transitions *reasoning.TransitionAdvisor) (*server.Server, error) {
	if analyzer == nil {
		return server.NewServer(p, st, nil, nil, nil)
	}
	return server.NewServer(p, st, analyzer, alarms, transitions)
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8230)
	viper.SetDefault("data", "")
	viper.SetDefault("driver", "sqlite")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8230, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `store driver, "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("campusclock")
	viper.AutomaticEnv()
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to run campusclock", "error", err)
		os.Exit(1)
	}
}
