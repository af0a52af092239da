package main

import (
	"context"
	"sync"

	"github.com/Garik-/midiplay/pkg/midi"
	"go.uber.org/zap"
)

type result struct {
	name string
	song *midi.Song
	err  error
}

func decodeFile(name string) *result {
	song, err := midi.Load(name)
	return &result{name: name, song: song, err: err}
}

// decodeWorker decodes paths with at most cntRoutines files in flight. done is
// signalled once every worker has returned and out is closed.
func decodeWorker(ctx context.Context, paths <-chan string, cntRoutines int) (<-chan *result, <-chan struct{}) {
	log := decoderLog.Named("decodeWorker")
	out := make(chan *result)
	done := make(chan struct{}, 1)

	go func() {
		var wg sync.WaitGroup
		goroutines := make(chan struct{}, cntRoutines)

	loop:
		for path := range paths {
			select {
			case goroutines <- struct{}{}:
			case <-ctx.Done():
				log.Debug("context done")
				break loop
			}
			wg.Add(1)
			go func(path string) {
				defer wg.Done()

				select {
				case out <- decodeFile(path):
				case <-ctx.Done():
					log.Debug("decodeFile context done", zap.String("path", path))
				}
				<-goroutines
			}(path)
		}

		wg.Wait()
		close(goroutines)
		close(out)

		done <- struct{}{}
		close(done)
	}()

	return out, done
}
