package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Garik-/midiplay/pkg/midi"
	"github.com/Garik-/midiplay/pkg/player"
	"github.com/davecgh/go-spew/spew"
	flag "github.com/spf13/pflag"
	gomidi "gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"
)

const (
	defaultInterval = 5 * time.Millisecond
)

var (
	dumpFlag     = flag.BoolP("dump", "d", false, "Dump the parsed song and exit")
	intervalFlag = flag.DurationP("interval", "i", defaultInterval, "Playback step, must be > 0")
	verboseFlag  = flag.BoolP("verbose", "v", false, "Debug logging")
	wireFlag     = flag.Bool("wire", false, "Log the wire bytes of every event instead of its description, meta events are skipped")
)

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newSink(logger *zap.Logger, wire bool) player.Sink {
	if wire {
		return player.NewWireSink(func(msg gomidi.Message) error {
			logger.Info("wire", zap.Binary("bytes", msg), zap.Stringer("msg", msg))
			return nil
		})
	}

	return player.SinkFunc(func(e midi.Event) {
		logger.Info("event", zap.Stringer("kind", e.Kind()), zap.String("event", e.String()))
	})
}

// play steps the scheduler by the measured wall clock time between ticks
// until the song ends or ctx is cancelled.
func play(ctx context.Context, song *midi.Song, interval time.Duration, sink player.Sink) error {
	s := player.New(song)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	s.Update(0, song, sink)

	for !s.Done(song) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Advance(now.Sub(last), song, sink)
			last = now
		}
	}

	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] FILE\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 || *intervalFlag <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger, err := newLogger(*verboseFlag)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if *verboseFlag {
		midi.SetLogger(logger)
		player.SetLogger(logger)
	}

	path := flag.Arg(0)
	song, err := midi.Load(path)
	if err != nil {
		logger.Fatal("load failed", zap.String("path", path), zap.Error(err))
	}

	h := song.Header()
	logger.Info("loaded",
		zap.String("path", path),
		zap.Uint16("format", h.Format),
		zap.Int("tracks", song.NumTracks()),
		zap.Uint16("ppqn", song.PPQN()),
		zap.Int("events", song.NumEvents()))

	if *dumpFlag {
		spew.Dump(song)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = play(ctx, song, *intervalFlag, newSink(logger, *wireFlag))
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("playback failed", zap.Error(err))
	}

	logger.Info("stopped", zap.Duration("elapsed", time.Since(start)), zap.Bool("interrupted", err != nil))
}
