package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go.aimuz.me/transpeak/audiocapture"
	"go.aimuz.me/transpeak/cache"
	"go.aimuz.me/transpeak/internal/app"
	"go.aimuz.me/transpeak/internal/types"
	"go.aimuz.me/transpeak/stt"
	"go.aimuz.me/transpeak/tts"
)

var (
	audioInput   string
	sampleRate   int
	wordDuration time.Duration
)

var errQuit = errors.New("quit")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start an interactive translation session",
	Long: `Start an interactive translation session.

Each line you type replaces the current text, which is translated and spoken
once you pause. While recording, lines are dictation instead.

Commands:
  /source <tag>   change the source language
  /target <tag>   change the target language
  /record         start or stop recording
  /speak          speak the last translation again
  /status         show the session state
  /detect <text>  detect the language of text
  /quit           leave`,
	RunE: runSession,
}

func init() {
	runCmd.Flags().StringVar(&audioInput, "audio-input", "", "Raw mono float32 PCM file or FIFO to record from (default: dictate at the prompt)")
	runCmd.Flags().IntVar(&sampleRate, "sample-rate", 16000, "Sample rate of --audio-input")
	runCmd.Flags().DurationVar(&wordDuration, "word-duration", tts.DefaultWordDuration, "Simulated speaking time per word")
	rootCmd.AddCommand(runCmd)
}

type repl struct {
	coord  *app.Coordinator
	manual *stt.ManualRecognizer
	cache  *cache.Cache
	out    io.Writer
}

func runSession(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pair, err := cfg.LanguagePair()
	if err != nil {
		return err
	}
	fallback, err := types.ParseLanguageTag(cfg.Session.FallbackVoice)
	if err != nil {
		return fmt.Errorf("fallback voice: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := openCache(cfg)
	if c != nil {
		defer c.Close()
	}

	provider, closeProvider, err := buildProvider(ctx, cfg, c)
	if err != nil {
		return err
	}
	defer closeProvider()

	rec, manual, closeRec, err := buildRecognizer(cfg, audioInput, sampleRate)
	if err != nil {
		return err
	}
	defer closeRec()

	out := cmd.OutOrStdout()
	coord, err := app.New(app.Config{
		Pair:                        pair,
		DebounceDelay:               cfg.DebounceDelay(),
		RetranslateOnLanguageChange: cfg.RetranslateOnLanguageChange(),
		DefaultTargets:              cfg.DefaultLanguages,
	}, app.Deps{
		Provider:    provider,
		Recognizer:  rec,
		Synthesizer: tts.NewConsoleSynthesizer(out, nil, wordDuration),
		Device:      &audiocapture.LogDevice{},
		Output:      tts.OutputConfig{FallbackVoice: fallback},
	})
	if err != nil {
		return err
	}
	defer coord.Close()

	s := &repl{coord: coord, manual: manual, cache: c, out: out}
	fmt.Fprintf(out, "Translating %s to %s with %s. Type /quit to leave.\n",
		pair.Source.DisplayName(), pair.Target.DisplayName(), provider.Name())

	lines := make(chan string)
	go readLines(cmd.InOrStdin(), lines)

	states, unsubscribe := coord.Subscribe()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.watch(gctx, states)
		return nil
	})
	g.Go(func() error {
		defer unsubscribe()
		return s.prompt(gctx, lines)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

// readLines sends stdin lines to ch and closes it at EOF.
func readLines(r io.Reader, ch chan<- string) {
	defer close(ch)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		ch <- sc.Text()
	}
	if err := sc.Err(); err != nil {
		slog.Error("read input", "error", err)
	}
}

func (s *repl) prompt(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if err := s.handle(line); err != nil {
				return err
			}
		}
	}
}

func (s *repl) handle(line string) error {
	if !strings.HasPrefix(line, "/") {
		if s.manual != nil && s.coord.Snapshot().Recording {
			s.manual.Append(line)
			return nil
		}
		s.coord.HandleTextChange(line)
		return nil
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "exit":
		return errQuit
	case "source", "target":
		tag, err := types.ParseLanguageTag(arg)
		if err != nil {
			fmt.Fprintf(s.out, "invalid language %q: %v\n", arg, err)
			return nil
		}
		if name == "source" {
			s.coord.SetSourceLanguage(tag)
		} else {
			s.coord.SetTargetLanguage(tag)
		}
	case "record":
		s.coord.ToggleRecord()
	case "speak":
		s.coord.SpeakAgain()
	case "status":
		s.printStatus(s.coord.Snapshot())
	case "detect":
		r := s.coord.DetectLanguage(arg)
		fmt.Fprintf(s.out, "%s (%s), suggested target %s\n", r.Name, r.Code, r.DefaultTarget)
	default:
		fmt.Fprintf(s.out, "unknown command /%s\n", name)
	}
	return nil
}

// watch prints translations and recording changes as they happen.
func (s *repl) watch(ctx context.Context, states <-chan app.State) {
	var prev app.State
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			if st.Pair != prev.Pair && prev.Pair != (types.LanguagePair{}) {
				fmt.Fprintf(s.out, "now translating %s to %s\n", st.Pair.Source.DisplayName(), st.Pair.Target.DisplayName())
			}
			if st.Recording != prev.Recording {
				if st.Recording {
					fmt.Fprintf(s.out, "recording in %s, /record to stop\n", st.Pair.Source.DisplayName())
				} else {
					fmt.Fprintln(s.out, "recording stopped")
				}
			}
			prev = st
		}
	}
}

func (s *repl) printStatus(st app.State) {
	fmt.Fprintf(s.out, "pair:       %s\n", st.Pair)
	fmt.Fprintf(s.out, "phase:      %s\n", st.Phase)
	fmt.Fprintf(s.out, "session:    %s (%s)\n", st.SessionID, st.SessionState)
	fmt.Fprintf(s.out, "recording:  %t\n", st.Recording)
	fmt.Fprintf(s.out, "speaking:   %t\n", st.Speaking)
	fmt.Fprintf(s.out, "audio:      %s\n", st.AudioMode)
	fmt.Fprintf(s.out, "pending:    %q\n", st.PendingText)
	fmt.Fprintf(s.out, "translated: %q\n", st.TranslatedText)
	if e := st.LastSpeechEvent; e != nil {
		fmt.Fprintf(s.out, "speech:     %s %s\n", e.Type, e.UtteranceID)
	}
	if s.cache != nil {
		lsm, vlog := s.cache.Size()
		fmt.Fprintf(s.out, "cache:      %s\n", humanize.Bytes(uint64(lsm+vlog)))
	}
	fmt.Fprintf(s.out, "updated:    %s\n", humanize.Time(st.UpdatedAt))
}
