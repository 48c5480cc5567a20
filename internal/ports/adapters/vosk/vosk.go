// Package vosk runs the speech-to-text script as a child process and streams
// its JSON output as recognition events.
package vosk

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/speechcut/internal/ports"
	"github.com/forPelevin/speechcut/internal/types"
)

type Adapter struct {
	python string
	script string
	log    *slog.Logger
}

func New(python, script string, log *slog.Logger) *Adapter {
	if python == "" {
		python = "python3"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{python: python, script: script, log: log}
}

func (a *Adapter) Check(ctx context.Context) error {
	if _, err := exec.LookPath(a.python); err != nil {
		return fmt.Errorf("%w: cannot find %s, please install it on your system", ports.ErrRecognizerNotInstalled, a.python)
	}
	if a.script == "" {
		return fmt.Errorf("%w: no script configured", ports.ErrRecognizerScriptMissing)
	}
	if _, err := os.Stat(a.script); err != nil {
		return fmt.Errorf("%w: %s, check your install", ports.ErrRecognizerScriptMissing, a.script)
	}
	return nil
}

func (a *Adapter) Start(ctx context.Context, job types.RecognitionJob) (ports.RecognitionRun, error) {
	if err := a.Check(ctx); err != nil {
		return nil, err
	}
	args := []string{
		a.script,
		job.ModelDir,
		job.Language,
		job.MediaURL,
		fmtSeconds(job.OffsetSec),
		fmtSeconds(job.DurationSec),
	}
	cmd := exec.CommandContext(ctx, a.python, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recognizer stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("recognizer stderr: %w", err)
	}
	a.log.Debug("starting recognizer", "python", a.python, "args", args)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start recognizer: %w", err)
	}

	r := &run{ctx: ctx, cmd: cmd, events: make(chan ports.Event, 16), log: a.log}
	go r.pump(stdout, stderr)
	return r, nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'g', -1, 64)
}

type run struct {
	ctx    context.Context
	cmd    *exec.Cmd
	events chan ports.Event
	log    *slog.Logger

	killed   atomic.Bool
	killOnce sync.Once
	killErr  error
}

func (r *run) Events() <-chan ports.Event { return r.events }

// Kill stops the child. Output still buffered in the pipes is discarded and
// the Exit event reports a crash.
func (r *run) Kill() error {
	r.killOnce.Do(func() {
		r.killed.Store(true)
		if r.cmd.Process != nil {
			r.killErr = r.cmd.Process.Kill()
		}
	})
	return r.killErr
}

func (r *run) pump(stdout, stderr io.Reader) {
	defer close(r.events)

	var g errgroup.Group
	g.Go(func() error { return r.readResults(stdout) })
	g.Go(func() error { return r.readLog(stderr) })
	readErr := g.Wait()

	waitErr := r.cmd.Wait()
	exit := ports.Exit{Err: waitErr}
	if st := r.cmd.ProcessState; st != nil {
		exit.Code = st.ExitCode()
		exit.Crashed = !st.Exited()
	}
	if r.killed.Load() {
		exit.Crashed = true
	}
	if readErr != nil && exit.Err == nil {
		exit.Err = readErr
	}
	r.send(exit)
}

// send gives up once the run's context is done so an abandoned run never
// blocks its goroutines.
func (r *run) send(ev ports.Event) {
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}

// readResults decodes the stream of JSON objects. A chunk that is not JSON is
// skipped and decoding resumes at the next object.
func (r *run) readResults(stdout io.Reader) error {
	src := bufio.NewReader(stdout)
	dec := json.NewDecoder(src)
	for {
		var res types.RecognitionResult
		err := dec.Decode(&res)
		if errors.Is(err, io.EOF) {
			return nil
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			r.log.Warn("skipping recognizer output", "err", err)
			continue
		}
		var synErr *json.SyntaxError
		if errors.As(err, &synErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			r.log.Warn("skipping recognizer output that is not JSON", "err", err)
			rest := bufio.NewReader(io.MultiReader(dec.Buffered(), src))
			if err := skipToObject(rest); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return fmt.Errorf("read recognizer output: %w", err)
			}
			src = rest
			dec = json.NewDecoder(src)
			continue
		}
		if err != nil {
			return fmt.Errorf("read recognizer output: %w", err)
		}
		if r.killed.Load() {
			continue
		}
		r.send(ports.Sentence{Result: res})
	}
}

// skipToObject drops the rest of the current line, then whole lines until
// one opens an object at column 0. The recognizer starts every top-level
// object there, pretty-printed or not.
func skipToObject(r *bufio.Reader) error {
	if _, err := r.ReadString('\n'); err != nil {
		return err
	}
	for {
		b, err := r.Peek(1)
		if err != nil {
			return err
		}
		if b[0] == '{' {
			return nil
		}
		if _, err := r.ReadString('\n'); err != nil {
			return err
		}
	}
}

func (r *run) readLog(stderr io.Reader) error {
	buf := make([]byte, 4096)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			r.send(ports.Log{Text: string(buf[:n])})
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read recognizer log: %w", err)
		}
	}
}
