// Package main provides the entry point for the naudio CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/nothke/naudio/sound"
	"github.com/nothke/naudio/sound/otoengine"
	"github.com/nothke/naudio/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	tui          bool
	showAllFiles bool
	mouse        bool
	watch        bool
	engineName   string
	poolSize     int
	masterVolume float64
	pitch        float64
	randomStart  bool

	rootCmd = &cobra.Command{
		Use:   "naudio [FILE|DIR]",
		Short: "Play sounds on the CLI, with pooling!",
		Long: paragraph(
			fmt.Sprintf("\nPlay sounds on the CLI, %s!", keyword("with pooling")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ArbitraryArgs,
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	tui = viper.GetBool("tui")
	mouse = viper.GetBool("mouse")
	watch = viper.GetBool("watch")
	showAllFiles = viper.GetBool("all")

	if cmd.Flags().Changed("pitch") && (pitch <= 0 || pitch > 4) {
		return fmt.Errorf("pitch must be between 0 and 4, got %v", pitch)
	}
	return nil
}

// newSoundStack builds the engine, dispatcher and clip loader selected by
// the sound configuration.
func newSoundStack(cfg sound.Config) (sound.Engine, *sound.Dispatcher, ui.ClipLoader, error) {
	var engine sound.Engine
	switch cfg.Engine {
	case "mock":
		engine = sound.NewMockEngine()
	default:
		ecfg := otoengine.DefaultConfig()
		ecfg.SampleRate = cfg.SampleRate
		oto, err := otoengine.New(ecfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("starting playback engine: %w", err)
		}
		engine = oto
	}

	d, err := sound.NewDispatcher(engine, cfg)
	if err != nil {
		engine.Close()
		return nil, nil, nil, err
	}

	loader := otoengine.NewLoader(cfg.SampleRate, 2)
	if oto, ok := engine.(*otoengine.Engine); ok {
		loader = oto.Loader()
	}
	return engine, d, loader, nil
}

func execute(cmd *cobra.Command, args []string) error {
	cfg, err := sound.LoadConfigFromViper()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("engine") {
		cfg.Engine = engineName
	}
	if cmd.Flags().Changed("pool-size") {
		cfg.PoolSize = poolSize
	}
	if cmd.Flags().Changed("volume") {
		cfg.MasterVolume = masterVolume
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch len(args) {
	// TUI running on cwd
	case 0:
		return runTUI(cfg, "")

	// TUI with possible dir argument
	case 1:
		// Validate that the argument is a directory. If it's not, treat it
		// as a file to play (via fallthrough).
		info, err := os.Stat(args[0])
		if err == nil && info.IsDir() {
			p, err := filepath.Abs(args[0])
			if err == nil {
				return runTUI(cfg, p)
			}
		}
		fallthrough

	// CLI playback
	default:
		if tui {
			return errors.New("cannot use tui mode with file arguments")
		}
		return playFiles(cfg, args)
	}
}

// playFiles plays each argument in order, blocking until playback ends.
func playFiles(cfg sound.Config, args []string) error {
	engine, d, loader, err := newSoundStack(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()
	defer d.Close()

	for _, arg := range args {
		path, err := homedir.Expand(arg)
		if err != nil {
			path = arg
		}

		clip, err := loader.LoadClip(path)
		if err != nil {
			return err
		}

		p := sound.DefaultPlayParams()
		p.Pitch = pitch

		e, err := d.Play(clip, sound.Vec3{}, p)
		if err != nil {
			return err
		}
		if e == nil {
			continue
		}
		if randomStart {
			d.PlayRandomTime(e)
		}

		log.Info("playing", "clip", clip.Name, "duration", clip.Duration)
		waitForPlayback(e, clip.Duration, p.Pitch, cfg.DestroyMargin)
	}
	return nil
}

// waitForPlayback blocks until the emitter goes idle, bounded by the
// pitch-adjusted clip duration plus the teardown margin.
func waitForPlayback(e sound.Emitter, duration time.Duration, pitch float64, margin time.Duration) {
	if pitch <= 0 {
		pitch = 1
	}
	deadline := time.Now().Add(time.Duration(float64(duration)/pitch) + margin)

	// Give the engine a moment to start before polling for idle.
	time.Sleep(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		if !e.IsPlaying() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func runTUI(cfg sound.Config, path string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the tui needs a terminal")
	}

	// Read environment to get debugging stuff
	uicfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	uicfg.Path = path
	uicfg.ShowAllFiles = showAllFiles
	uicfg.EnableMouse = mouse
	uicfg.Watch = watch

	engine, d, loader, err := newSoundStack(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()
	defer d.Close()

	// Run Bubble Tea program
	if _, err := ui.NewProgram(uicfg, d, loader).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().BoolVarP(&tui, "tui", "t", false, "browse sounds with the tui")
	rootCmd.Flags().BoolVarP(&showAllFiles, "all", "a", false, "show ignored files and directories (TUI-mode only)")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel (TUI-mode only)")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", true, "reload the listing on directory changes (TUI-mode only)")
	rootCmd.Flags().StringVarP(&engineName, "engine", "e", "", "playback engine (oto/mock)")
	rootCmd.Flags().IntVar(&poolSize, "pool-size", sound.DefaultPoolSize, "emitter pool capacity")
	rootCmd.Flags().Float64VarP(&masterVolume, "volume", "v", 1.0, "master volume (0.0 to 2.0)")
	rootCmd.Flags().Float64VarP(&pitch, "pitch", "p", 1.0, "playback pitch multiplier")
	rootCmd.Flags().BoolVarP(&randomStart, "random-start", "r", false, "start playback at a random position")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("tui", rootCmd.Flags().Lookup("tui"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("watch", rootCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("all", rootCmd.Flags().Lookup("all"))

	viper.SetDefault("watch", true)
	viper.SetDefault("all", true)

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "naudio")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "naudio")}, dirs...)
	}

	if c := os.Getenv("NAUDIO_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("naudio")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("naudio")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "naudio.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
