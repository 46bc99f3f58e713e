// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/eugener68/playlistbuilder/internal/app/builder"
)

// Config represents the application configuration.
type Config struct {
	Logging LoggingConfig           `yaml:"logging"`
	Spotify SpotifyConfig           `yaml:"spotify"`
	Build   BuildConfig             `yaml:"build"`
	Filters map[string]FilterConfig `yaml:"filters"`
}

// LoggingConfig represents logger configuration.
type LoggingConfig struct {
	Output string `yaml:"output" default:"stderr"`
	Level  string `yaml:"level" default:"info"`
	File   string `yaml:"file"`
}

// SpotifyConfig represents Spotify API configuration. Environment
// variables override all credential fields.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" validate:"required"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"US"`
}

// BuildConfig seeds default builder options; CLI flags override it.
type BuildConfig struct {
	PlaylistName    string   `yaml:"playlist_name" default:"Fav Artists Top Tracks"`
	DateStamp       bool     `yaml:"date_stamp"`
	LimitPerArtist  int      `yaml:"limit_per_artist" default:"5" validate:"gte=1"`
	MaxArtists      int      `yaml:"max_artists" default:"50" validate:"gte=1"`
	MaxTracks       int      `yaml:"max_tracks" default:"250" validate:"gte=1"`
	Shuffle         bool     `yaml:"shuffle"`
	ShuffleSeed     *int64   `yaml:"shuffle_seed"`
	DedupeExact     bool     `yaml:"dedupe_exact"`
	PreferOriginal  bool     `yaml:"prefer_original"`
	ReuseExisting   bool     `yaml:"reuse_existing"`
	Truncate        bool     `yaml:"truncate"`
	DryRun          *bool    `yaml:"dry_run"` // nil means true: never mutate by accident
	Public          bool     `yaml:"public"`
	Description     string   `yaml:"description" default:"Generated by Playlist Builder"`
	Artists         []string `yaml:"artists"`
	ArtistsFile     string   `yaml:"artists_file"`
	TopArtists      bool     `yaml:"top_artists"`
	FollowedArtists bool     `yaml:"followed_artists"`
}

// FilterConfig represents a filter stage's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file. Environment variables
// take precedence over file values for credentials.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("SPOTIFY_MARKET"); v != "" {
		c.Spotify.Market = v
	}
	if v := os.Getenv("SHUFFLE_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Build.ShuffleSeed = &seed
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// Options maps the build section to builder options.
func (c *Config) Options() builder.Options {
	dryRun := true
	if c.Build.DryRun != nil {
		dryRun = *c.Build.DryRun
	}
	return builder.Options{
		PlaylistName:    c.Build.PlaylistName,
		DateStamp:       c.Build.DateStamp,
		LimitPerArtist:  c.Build.LimitPerArtist,
		MaxArtists:      c.Build.MaxArtists,
		MaxTracks:       c.Build.MaxTracks,
		Shuffle:         c.Build.Shuffle,
		ShuffleSeed:     c.Build.ShuffleSeed,
		DedupeExact:     c.Build.DedupeExact,
		PreferOriginal:  c.Build.PreferOriginal,
		ReuseExisting:   c.Build.ReuseExisting,
		Truncate:        c.Build.Truncate,
		DryRun:          dryRun,
		Public:          c.Build.Public,
		Description:     c.Build.Description,
		Queries:         c.Build.Artists,
		ArtistsFile:     c.Build.ArtistsFile,
		TopArtists:      c.Build.TopArtists,
		FollowedArtists: c.Build.FollowedArtists,
	}
}

// FilterSettings returns the settings map for a filter stage, or nil.
func (c *Config) FilterSettings(name string) map[string]any {
	if f, ok := c.Filters[name]; ok {
		return f.Settings
	}
	return nil
}

// IsFilterEnabled checks if a filter stage is explicitly enabled.
func (c *Config) IsFilterEnabled(name string) bool {
	if f, ok := c.Filters[name]; ok {
		return f.Enabled
	}
	return false
}
