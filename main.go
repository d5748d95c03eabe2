package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/llehouerou/segue/internal/app"
	"github.com/llehouerou/segue/internal/config"
	"github.com/llehouerou/segue/internal/decoder"
	"github.com/llehouerou/segue/internal/errmsg"
	"github.com/llehouerou/segue/internal/focus"
	"github.com/llehouerou/segue/internal/icons"
	"github.com/llehouerou/segue/internal/logging"
	"github.com/llehouerou/segue/internal/mpris"
	"github.com/llehouerou/segue/internal/notify"
	"github.com/llehouerou/segue/internal/playback"
	"github.com/llehouerou/segue/internal/player"
	"github.com/llehouerou/segue/internal/playlist"
	"github.com/llehouerou/segue/internal/sequencer"
	"github.com/llehouerou/segue/internal/state"
	"github.com/llehouerou/segue/internal/stderr"
)

type flags struct {
	loop     string
	shuffle  bool
	history  int
	logLevel string
	noState  bool
}

func parseFlags(args []string) (flags, []string, error) {
	var f flags
	fs := pflag.NewFlagSet("segue", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: segue [flags] [file or directory...]")
		fs.PrintDefaults()
	}
	fs.StringVarP(&f.loop, "loop", "l", "", "loop mode: none, playlist or track")
	fs.BoolVarP(&f.shuffle, "shuffle", "s", false, "shuffle the queue")
	fs.IntVar(&f.history, "history", 0, "print the last N played tracks and exit")
	fs.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	fs.BoolVar(&f.noState, "no-state", false, "do not restore or save the queue")
	if err := fs.Parse(args); err != nil {
		return f, nil, err
	}
	return f, fs.Args(), nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	f, paths, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpConfigLoad, err))
	}
	if err := applyFlags(cfg, f); err != nil {
		return err
	}
	icons.Init(cfg.UI.Icons)

	log, logCloser, err := logging.Setup(cfg.Log, true)
	if err != nil {
		return err
	}
	defer logCloser.Close()
	log = log.With().Str("session", uuid.NewString()).Logger()

	store, err := openStore(cfg, f.noState)
	if err != nil {
		return err
	}
	defer store.Close()

	if f.history > 0 {
		return printHistory(os.Stdout, store, f.history)
	}

	capture, err := stderr.Start(log)
	if err != nil {
		log.Warn().Err(err).Msg("stderr capture unavailable")
	}
	defer capture.Stop()

	out, err := player.NewOutput(beep.SampleRate(cfg.Output.SampleRate), cfg.Output.Buffer, log)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	defer out.Close()

	svc := playback.New(playback.Options{
		Factory:  out.NewEngine,
		Arbiter:  focus.NewBroker(log),
		Retain:   cfg.Playback.PoolRetain,
		Params:   decoder.Params{Volume: cfg.Playback.Volume, Speed: cfg.Playback.Speed, Pitch: cfg.Playback.Pitch},
		LoopMode: cfg.LoopMode(),
		Shuffle:  cfg.Playback.Shuffle,
	}, log)
	defer svc.Close()

	remote, err := mpris.New(svc, log)
	if err != nil {
		log.Warn().Err(err).Msg("media keys unavailable")
	} else {
		defer remote.Close()
	}

	opts := app.Options{SeekStep: cfg.Playback.SeekStep}
	if capture != nil {
		opts.Stderr = capture.Lines
	}
	if cfg.UI.Notifications {
		if opts.Notifier, err = notify.New(); err != nil {
			log.Warn().Err(err).Msg("desktop notifications unavailable")
		}
	}
	autoplay, err := loadQueue(svc, store, paths, &opts, log)
	if err != nil {
		return err
	}

	m := app.New(svc, store, opts, log)
	if autoplay {
		if err := svc.Play(); err != nil {
			return errors.New(errmsg.Format(errmsg.OpPlaybackStart, err))
		}
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "run program")
	}
	return nil
}

// applyFlags lets command line flags override the config file.
func applyFlags(cfg *config.Config, f flags) error {
	if f.loop != "" {
		mode, err := sequencer.ParseLoopMode(f.loop)
		if err != nil {
			return errors.Wrap(err, "--loop")
		}
		cfg.Playback.Loop = mode.String()
	}
	if f.shuffle {
		cfg.Playback.Shuffle = true
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return nil
}

func openStore(cfg *config.Config, disabled bool) (state.Interface, error) {
	if disabled || !cfg.State.Enabled {
		return state.NewMock(), nil
	}
	store, err := state.Open(cfg.State.Path)
	if err != nil {
		return nil, errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	return store, nil
}

// loadQueue fills the queue from the command line, or restores the saved one
// when no path is given. It reports whether playback should start at once.
func loadQueue(svc playback.Service, store state.Interface, paths []string, opts *app.Options, log zerolog.Logger) (bool, error) {
	if len(paths) == 0 {
		snap, err := app.RestoreQueue(svc, store)
		if err != nil {
			log.Warn().Err(err).Msg(errmsg.Format(errmsg.OpQueueLoad, err))
			return false, nil
		}
		opts.Resume = snap.Position
		return false, nil
	}

	tracks, err := playlist.CollectPaths(paths)
	if err != nil {
		return false, errors.New(errmsg.Format(errmsg.OpQueueAdd, err))
	}
	if len(tracks) == 0 {
		return false, errors.Newf("no playable files in %v", paths)
	}
	for i := range tracks {
		tracks[i] = playlist.WithDuration(tracks[i])
	}
	if err := svc.Replace(tracks, 0); err != nil {
		return false, errors.New(errmsg.Format(errmsg.OpQueueAdd, err))
	}
	return true, nil
}

func printHistory(w io.Writer, store state.Interface, limit int) error {
	records, err := store.History(limit)
	if err != nil {
		return errors.New(errmsg.Format(errmsg.OpHistoryLoad, err))
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No tracks played yet.")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(w, "%-16s %s\n", humanize.Time(r.PlayedAt), r.Title)
	}
	return nil
}
