package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	maxGoroutines = 10
)

var (
	listFlag    = flag.StringP("list", "l", "", "The path to the list of midi files,\nfind . -type f -name \"*.mid\" > midi_list.txt")
	maxFlag     = flag.IntP("parallel", "p", maxGoroutines, "Number of files processed in parallel, must be > 0")
	outFlag     = flag.StringP("out", "o", "", "Write the velocity map json here instead of stdout")
	verboseFlag = flag.BoolP("verbose", "v", false, "Debug logging")
)

// readList streams the non-blank lines of r. The channel is closed at the end
// of input or once ctx is done.
func readList(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)

	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanLines)

	go func() {
		defer close(out)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func writeMap(name string, m noteMap) error {
	var w io.Writer = os.Stdout
	if name != "" {
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s \n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *listFlag == "" || *maxFlag <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *verboseFlag {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
		defer l.Sync()
		enableDebugLogging(l)
	}

	f, err := os.Open(*listFlag)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	m, err := newVelocityMap(ctx, readList(ctx, f), *maxFlag)
	cancel()
	if err != nil {
		log.Fatal(err)
	}

	if err := writeMap(*outFlag, m); err != nil {
		log.Fatal(err)
	}
}
