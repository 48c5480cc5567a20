// Package config loads and saves the persisted editor settings.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	appName = "speechcut"

	EnvModelDir = "SPEECHCUT_MODEL_DIR"
	EnvPython   = "SPEECHCUT_PYTHON"
	EnvScript   = "SPEECHCUT_SCRIPT"
)

type Settings struct {
	// Recognition
	LanguageModel string `yaml:"language_model"`
	ZoneOnly      bool   `yaml:"zone_only"`
	ModelDir      string `yaml:"model_dir"`
	Python        string `yaml:"python"`
	Script        string `yaml:"script"`

	// Playback and rendering
	Player        string  `yaml:"player"`
	PreviewPlayer string  `yaml:"preview_player"`
	FFmpeg        string  `yaml:"ffmpeg"`
	FFprobe       string  `yaml:"ffprobe"`
	FPSFallback   float64 `yaml:"fps_fallback"`

	path string
}

func Default() *Settings {
	s := &Settings{
		Python:        "python3",
		Player:        "mpv",
		PreviewPlayer: "melt",
		FFmpeg:        "ffmpeg",
		FFprobe:       "ffprobe",
		FPSFallback:   25,
	}
	return s
}

// DefaultPath is settings.yaml under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "settings.yaml"), nil
}

// DataDir holds speech models and the recognizer script by default.
func DataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+appName)
	}
	return filepath.Join(home, ".local", "share", appName)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Settings, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("locate settings: %w", err)
		}
		path = p
	}
	s := Default()
	s.path = path
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.normalize()
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	s.normalize()
	return s, nil
}

func (s *Settings) normalize() {
	s.LanguageModel = strings.TrimSpace(s.LanguageModel)
	s.ModelDir = strings.TrimSpace(s.ModelDir)
	if s.ModelDir != "" {
		s.ModelDir = filepath.Clean(s.ModelDir)
	}
	d := Default()
	for _, f := range []struct{ v *string; def string }{
		{&s.Python, d.Python},
		{&s.Player, d.Player},
		{&s.PreviewPlayer, d.PreviewPlayer},
		{&s.FFmpeg, d.FFmpeg},
		{&s.FFprobe, d.FFprobe},
	} {
		*f.v = strings.TrimSpace(*f.v)
		if *f.v == "" {
			*f.v = f.def
		}
	}
	if s.FPSFallback <= 0 {
		s.FPSFallback = d.FPSFallback
	}
}

func (s *Settings) Path() string { return s.path }

// Effective returns a copy with environment overrides and resolved default
// locations applied. It is never saved.
func (s *Settings) Effective() Settings {
	e := *s
	if v := os.Getenv(EnvModelDir); v != "" {
		e.ModelDir = v
	}
	if v := os.Getenv(EnvPython); v != "" {
		e.Python = v
	}
	if v := os.Getenv(EnvScript); v != "" {
		e.Script = v
	}
	if e.ModelDir == "" {
		e.ModelDir = filepath.Join(DataDir(), "speechmodels")
	}
	if e.Script == "" {
		e.Script = filepath.Join(DataDir(), "scripts", "speechtotext.py")
	}
	return e
}

// Save writes the settings atomically to their path.
func (s *Settings) Save() error {
	if s.path == "" {
		return errors.New("settings have no path")
	}
	b, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return writeFileAtomic(s.path, b, 0o644)
}

// Encode writes the settings as YAML.
func (s *Settings) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// Keys lists the names accepted by Set.
func Keys() []string {
	return []string{
		"language_model", "zone_only", "model_dir", "python", "script",
		"player", "preview_player", "ffmpeg", "ffprobe", "fps_fallback",
	}
}

// Set assigns one setting by its yaml name.
func (s *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "language_model":
		s.LanguageModel = value
	case "zone_only":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("zone_only: %w", err)
		}
		s.ZoneOnly = b
	case "model_dir":
		s.ModelDir = value
	case "python":
		s.Python = value
	case "script":
		s.Script = value
	case "player":
		s.Player = value
	case "preview_player":
		s.PreviewPlayer = value
	case "ffmpeg":
		s.FFmpeg = value
	case "ffprobe":
		s.FFprobe = value
	case "fps_fallback":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("fps_fallback must be a positive number, got %q", value)
		}
		s.FPSFallback = f
	default:
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	s.normalize()
	return nil
}

// DiscoverModels lists the subdirectories of dir that look like speech
// models: they hold mfcc.conf directly or under conf/.
func DiscoverModels(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		if exists(filepath.Join(sub, "mfcc.conf")) || exists(filepath.Join(sub, "conf", "mfcc.conf")) {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func writeFileAtomic(dest string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	_ = os.Chmod(tmpName, perm)
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
