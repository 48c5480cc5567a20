package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/forPelevin/speechcut/internal/config"
	"github.com/forPelevin/speechcut/internal/domain/timemap"
	"github.com/forPelevin/speechcut/internal/pipeline"
	"github.com/forPelevin/speechcut/internal/tui"
	"github.com/forPelevin/speechcut/internal/types"
	"github.com/forPelevin/speechcut/internal/usecase"
)

// mediaFlags are shared by edit and transcribe.
type mediaFlags struct {
	lang     string
	zone     string
	zoneOnly bool
	out      string
}

func (m *mediaFlags) register(cmd *cobra.Command, outHelp string) {
	cmd.Flags().StringVar(&m.lang, "lang", "", "language model name (default: from settings)")
	cmd.Flags().StringVar(&m.zone, "zone", "", "clip zone in frames, in:out")
	cmd.Flags().BoolVar(&m.zoneOnly, "zone-only", false, "recognize the zone only")
	cmd.Flags().StringVar(&m.out, "out", "", outHelp)
}

func newEditCmd(root *rootFlags) *cobra.Command {
	var (
		media mediaFlags
		start bool
	)
	cmd := &cobra.Command{
		Use:   "edit <media>",
		Short: "Open the interactive transcript editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, root, media, start, args[0])
		},
	}
	media.register(cmd, "directory for rendered zones (default: next to the input)")
	cmd.Flags().BoolVar(&start, "start", false, "start recognition right away")
	return cmd
}

func newTranscribeCmd(root *rootFlags) *cobra.Command {
	var (
		media mediaFlags
		out   pipeline.Outputs
	)
	cmd := &cobra.Command{
		Use:   "transcribe <media>",
		Short: "Recognize speech and print the transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, root, media, out, args[0])
		},
	}
	media.register(cmd, "output directory for written files")
	cmd.Flags().BoolVar(&out.SRT, "srt", false, "write SRT subtitles")
	cmd.Flags().BoolVar(&out.VTT, "vtt", false, "write WebVTT subtitles")
	cmd.Flags().BoolVar(&out.ASS, "ass", false, "write karaoke ASS subtitles")
	cmd.Flags().BoolVar(&out.HTML, "html", false, "write the transcript HTML")
	return cmd
}

// parseZone reads "in:out" frames. An empty string is no zone.
func parseZone(s string) (types.Interval, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.Interval{}, nil
	}
	in, out, ok := strings.Cut(s, ":")
	if !ok {
		return types.Interval{}, fmt.Errorf("zone %q: want in:out", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(in))
	if err != nil {
		return types.Interval{}, fmt.Errorf("zone in: %w", err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return types.Interval{}, fmt.Errorf("zone out: %w", err)
	}
	return types.Interval{Start: a, End: b}, nil
}

func loadSettings(root *rootFlags) (*config.Settings, error) {
	s, err := config.Load(root.config)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

func pipelineConfig(st *config.Settings, media mediaFlags, input string, log *slog.Logger) (pipeline.Config, error) {
	absIn, err := filepath.Abs(input)
	if err != nil {
		return pipeline.Config{}, err
	}
	zone, err := parseZone(media.zone)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}
	cfg := pipeline.Config{
		Media:    absIn,
		Settings: st.Effective(),
		Language: media.lang,
		ZoneOnly: media.zoneOnly || st.ZoneOnly && zone != (types.Interval{}),
		Zone:     zone,
		OutDir:   media.out,
		Log:      log,
	}
	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func runEdit(cmd *cobra.Command, root *rootFlags, media mediaFlags, start bool, input string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("edit needs an interactive terminal; use transcribe instead")
	}
	st, err := loadSettings(root)
	if err != nil {
		return err
	}

	// the terminal belongs to the editor; logs go to a file
	logPath := filepath.Join(config.DataDir(), "speechcut.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}
	f, err := tea.LogToFile(logPath, "speechcut")
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()
	log := newLogger(f, root)

	cfg, err := pipelineConfig(st, media, input, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := pipeline.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	err = tui.Run(ctx, tui.Config{Session: s, Settings: st, AutoStart: start})
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func runTranscribe(cmd *cobra.Command, root *rootFlags, media mediaFlags, out pipeline.Outputs, input string) error {
	st, err := loadSettings(root)
	if err != nil {
		return err
	}
	log := slog.Default()
	cfg, err := pipelineConfig(st, media, input, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := pipeline.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	last := -1
	err = pipeline.Transcribe(ctx, s, func(u usecase.Update) {
		if pct := int(u.Progress * 100); pct/10 != last/10 {
			last = pct
			log.Info("recognizing", "progress", fmt.Sprintf("%d%%", pct))
		}
	})
	if err != nil {
		return err
	}

	if err := printTranscript(cmd, s); err != nil {
		return err
	}
	if out.Any() {
		dir, err := pipeline.WriteOutputs(s, media.out, out)
		if err != nil {
			return err
		}
		log.Info("done", "dir", dir)
	}
	return nil
}

func printTranscript(cmd *cobra.Command, s *pipeline.Session) error {
	doc := s.Controller.Document()
	w := cmd.OutOrStdout()
	for i := 0; i < doc.BlockCount(); i++ {
		tc := timemap.SecondsTimecode(doc.Zone(i).Start, s.Clip.FPS)
		if _, err := fmt.Fprintf(w, "%s  %s\n", tc, doc.Block(i).Text()); err != nil {
			return err
		}
	}
	return nil
}
