package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"SpeedSplit/app"
	"SpeedSplit/config"
	"SpeedSplit/sound"
	"SpeedSplit/ui"
)

var (
	cfgFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "speedsplit [split-file]",
	Short: "Speedrun split timer",
	Long: `SpeedSplit times speedruns against a split file, optionally driven by an
auto splitter script and by commands sent with "speedsplit ctl".`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		setupLogging(cfg.Logging.Level)

		splitFile := cfg.History.SplitFile
		if len(args) == 1 {
			splitFile = args[0]
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Headless {
			return runHeadless(ctx, cfg, splitFile)
		}
		return runWindow(ctx, cfg, splitFile)
	},
}

func runHeadless(ctx context.Context, cfg *config.Config, splitFile string) error {
	a := app.NewAppManager(cfg, app.Deps{
		View:      ui.NewLogView(cfg.Timer.Decimals),
		Confirmer: ui.AutoConfirmer{Answer: cfg.Save.AutoConfirm},
		Sounds:    sound.New(cfg.Sound),
	})

	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx) }()
	openInitial(ctx, a, splitFile)
	return <-errc
}

func runWindow(ctx context.Context, cfg *config.Config, splitFile string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fyneApp := fyneapp.NewWithID("io.github.speedsplit")
	w := ui.NewWindow(fyneApp, cfg.Timer.Decimals, cfg.AutoSplitter.Enabled)
	a := app.NewAppManager(cfg, app.Deps{
		View:      w,
		Confirmer: w,
		Sounds:    sound.New(cfg.Sound),
	})
	w.SetController(a)
	w.SetOnClosed(cancel)

	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx) }()
	go func() {
		// exit command or signal
		<-a.Done()
		w.Quit()
	}()
	go openInitial(ctx, a, splitFile)

	w.ShowAndRun()
	cancel()
	return <-errc
}

func openInitial(ctx context.Context, a *app.AppManager, path string) {
	if path == "" {
		return
	}
	if err := a.Open(ctx, path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("could not open split file")
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
	}
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is "+config.DefaultPath()+")")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("socket", config.DefaultSocket(), "control socket path")
	v.BindPFlag("control.socket", rootCmd.PersistentFlags().Lookup("socket"))

	rootCmd.Flags().BoolP("headless", "H", false, "run without a window, logging the timer instead")
	v.BindPFlag("headless", rootCmd.Flags().Lookup("headless"))

	rootCmd.Flags().StringP("auto-splitter", "a", "", "auto splitter script to load")
	v.BindPFlag("auto_splitter.script", rootCmd.Flags().Lookup("auto-splitter"))

	rootCmd.AddCommand(ctlCmd)
}
