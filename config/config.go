// Package config loads dspace settings from defaults, an optional yaml
// file and DSPACE_* environment variables, and builds the logger and
// designspace.Config they describe.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/katalvlaran/dspace/designspace"
	"github.com/katalvlaran/dspace/oracle"
)

const (
	configBaseName = "dspace"
	envPrefix      = "DSPACE"

	searchWorkersKey       = "search.workers"
	searchMaxSizeKey       = "search.max_size"
	searchMaxCandidatesKey = "search.max_candidates"
	searchModeKey          = "search.mode"

	boundsLowerKey = "bounds.lower"
	boundsUpperKey = "bounds.upper"

	volumeCutoffLowerKey = "volume.cutoff_lower"
	volumeCutoffUpperKey = "volume.cutoff_upper"

	resolveCyclesKey        = "space.resolve_cycles"
	resolveInstabilityKey   = "space.resolve_instability"
	resolveConservationsKey = "space.resolve_conservations"
	resolveCodominanceKey   = "space.resolve_codominance"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = "dspace.log"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
)

// ErrInvalid is returned by Load for settings that cannot be used.
var ErrInvalid = errors.New("config: invalid setting")

// Settings is the resolved configuration.
type Settings struct {
	Workers       int
	MaxSize       int
	MaxCandidates int
	Mode          designspace.SearchMode

	Range  oracle.Range
	Cutoff oracle.Range

	Options oracle.SystemOptions

	Log Log
}

// Log holds the rotating log file settings.
type Log struct {
	Filename   string
	Level      slog.Level
	Verbose    bool
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	d := designspace.DefaultConfig()
	v.SetDefault(searchWorkersKey, runtime.GOMAXPROCS(0))
	v.SetDefault(searchMaxSizeKey, d.MaxSize)
	v.SetDefault(searchMaxCandidatesKey, d.MaxCandidates)
	v.SetDefault(searchModeKey, d.Mode.String())
	v.SetDefault(boundsLowerKey, d.Range.Lower)
	v.SetDefault(boundsUpperKey, d.Range.Upper)
	v.SetDefault(volumeCutoffLowerKey, d.Cutoff.Lower)
	v.SetDefault(volumeCutoffUpperKey, d.Cutoff.Upper)
	v.SetDefault(resolveCyclesKey, true)
	v.SetDefault(resolveInstabilityKey, false)
	v.SetDefault(resolveConservationsKey, false)
	v.SetDefault(resolveCodominanceKey, false)

	v.SetDefault(logFilenameKey, defaultLogFilename)
	v.SetDefault(logLevelKey, "info")
	v.SetDefault(logVerboseKey, false)
	v.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	v.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	v.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	v.SetDefault(logCompressKey, true)

	return v
}

// Load resolves the settings. With an empty path it looks for dspace.yaml
// in the working directory and carries on without one; an explicit path
// must exist. Environment variables such as DSPACE_SEARCH_MAX_SIZE override
// the file.
func Load(path string) (Settings, error) {
	v := newViper()
	if path == "" {
		v.SetConfigName(configBaseName)
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("Load(%q): %w", path, err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Settings, error) {
	mode, err := designspace.ParseSearchMode(v.GetString(searchModeKey))
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", searchModeKey, errors.Join(ErrInvalid, err))
	}

	s := Settings{
		Workers:       v.GetInt(searchWorkersKey),
		MaxSize:       v.GetInt(searchMaxSizeKey),
		MaxCandidates: v.GetInt(searchMaxCandidatesKey),
		Mode:          mode,
		Range:         oracle.Range{Lower: v.GetFloat64(boundsLowerKey), Upper: v.GetFloat64(boundsUpperKey)},
		Cutoff:        oracle.Range{Lower: v.GetFloat64(volumeCutoffLowerKey), Upper: v.GetFloat64(volumeCutoffUpperKey)},
		Options: oracle.SystemOptions{
			ResolveCycles:        v.GetBool(resolveCyclesKey),
			ResolveInstability:   v.GetBool(resolveInstabilityKey),
			ResolveConservations: v.GetBool(resolveConservationsKey),
			ResolveCodominance:   v.GetBool(resolveCodominanceKey),
		},
		Log: Log{
			Filename:   v.GetString(logFilenameKey),
			Level:      parseLevel(v.GetString(logLevelKey), slog.LevelInfo),
			Verbose:    v.GetBool(logVerboseKey),
			MaxSize:    v.GetInt(logMaxSizeKey),
			MaxBackups: v.GetInt(logMaxBackupsKey),
			MaxAge:     v.GetInt(logMaxAgeKey),
			Compress:   v.GetBool(logCompressKey),
		},
	}

	return s, s.validate()
}

func (s Settings) validate() error {
	switch {
	case s.Workers < 1:
		return fmt.Errorf("%s must be positive: %w", searchWorkersKey, ErrInvalid)
	case s.MaxSize < 1:
		return fmt.Errorf("%s must be positive: %w", searchMaxSizeKey, ErrInvalid)
	case s.MaxCandidates < 1:
		return fmt.Errorf("%s must be positive: %w", searchMaxCandidatesKey, ErrInvalid)
	case !(s.Range.Lower > 0 && s.Range.Lower <= s.Range.Upper):
		return fmt.Errorf("bounds [%g, %g]: %w", s.Range.Lower, s.Range.Upper, ErrInvalid)
	case !(s.Cutoff.Lower > 0 && s.Cutoff.Lower <= s.Cutoff.Upper):
		return fmt.Errorf("volume cutoff [%g, %g]: %w", s.Cutoff.Lower, s.Cutoff.Upper, ErrInvalid)
	}

	return nil
}

// Space returns the designspace.Config for the given equations.
func (s Settings) Space(auxiliary []string, logger *slog.Logger) designspace.Config {
	return designspace.Config{
		Auxiliary:     auxiliary,
		Options:       s.Options,
		Workers:       s.Workers,
		MaxSize:       s.MaxSize,
		MaxCandidates: s.MaxCandidates,
		Mode:          s.Mode,
		Range:         s.Range,
		Cutoff:        s.Cutoff,
		Logger:        logger,
	}
}
