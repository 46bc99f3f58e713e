// Package main provides the playlist builder CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/eugener68/playlistbuilder/internal/app/builder"
	"github.com/eugener68/playlistbuilder/internal/infra/config"
	"github.com/eugener68/playlistbuilder/internal/infra/logger"
	"github.com/eugener68/playlistbuilder/internal/infra/spotify"
)

var (
	app        = kingpin.New("playlistcli", "Assemble a top-tracks playlist from artist names")
	configPath = app.Flag("config", "Config file path").Default("config.yaml").String()

	// build command
	buildCmd       = app.Command("build", "Build (or preview) the playlist")
	buildName      = buildCmd.Flag("name", "Playlist name").String()
	buildArtist    = buildCmd.Flag("artist", "Artist query (repeatable)").Strings()
	buildFile      = buildCmd.Flag("artists-file", "File with one artist query per line").String()
	buildLimit     = buildCmd.Flag("limit-per-artist", "Top tracks per artist").Int()
	buildMaxArt    = buildCmd.Flag("max-artists", "Artist cap").Int()
	buildMaxTracks = buildCmd.Flag("max-tracks", "Track cap").Int()
	buildSeed      = buildCmd.Flag("seed", "Shuffle seed (implies --shuffle)").Int64()
	buildShuffle   = buildCmd.Flag("shuffle", "Shuffle with artist balancing").Bool()
	buildDedupe    = buildCmd.Flag("dedupe", "Drop exact duplicate tracks").Bool()
	buildPrefer    = buildCmd.Flag("prefer-original", "Collapse remaster/live/remix variants").Bool()
	buildReuse     = buildCmd.Flag("reuse", "Reuse an existing playlist with the same name").Bool()
	buildTruncate  = buildCmd.Flag("truncate", "Replace existing contents instead of merging").Bool()
	buildDate      = buildCmd.Flag("date-stamp", "Append today's date to the name").Bool()
	buildPublic    = buildCmd.Flag("public", "Create the playlist as public").Bool()
	buildTop       = buildCmd.Flag("top-artists", "Add the user's top artists").Bool()
	buildFollowed  = buildCmd.Flag("followed-artists", "Add the user's followed artists").Bool()
	buildUpload    = buildCmd.Flag("upload", "Perform the remote write (disables dry run)").Bool()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config(cfg.Logging)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case buildCmd.FullCommand():
		runBuild(ctx, cfg)
	}
}

func runBuild(ctx context.Context, cfg *config.Config) {
	client, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		Market:       cfg.Spotify.Market,
	})
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create spotify client")
	}

	b := builder.New(builder.Deps{
		Profile:   client,
		Artists:   client,
		Tracks:    client,
		Playlists: client,
	})
	b.SetVariantSettings(cfg.FilterSettings("variant"))

	result, err := builder.NewRunner(b).Run(ctx, buildOptions(cfg))
	if err != nil {
		zlog.Fatal().Err(err).Msg("playlist build failed")
	}
	if result == nil {
		// Superseded or interrupted; nothing to report.
		return
	}

	fmt.Println("Playlist build stats:")
	for _, line := range result.Stats.Lines() {
		fmt.Printf("  %s\n", line)
	}
	if result.DryRun {
		fmt.Println("Dry run: no tracks were uploaded.")
	}
	for i, display := range result.DisplayTracks {
		fmt.Printf("%3d. %s\n", i+1, display)
	}
}

// buildOptions layers CLI flags over the config file defaults. Boolean
// flags are enable-only switches; numeric and string flags override
// when set.
func buildOptions(cfg *config.Config) builder.Options {
	opts := cfg.Options()
	if cfg.IsFilterEnabled("duplicate") {
		opts.DedupeExact = true
	}
	if cfg.IsFilterEnabled("variant") {
		opts.PreferOriginal = true
	}
	if *buildName != "" {
		opts.PlaylistName = *buildName
	}
	if len(*buildArtist) > 0 {
		opts.Queries = *buildArtist
	}
	if *buildFile != "" {
		opts.ArtistsFile = *buildFile
	}
	if *buildLimit > 0 {
		opts.LimitPerArtist = *buildLimit
	}
	if *buildMaxArt > 0 {
		opts.MaxArtists = *buildMaxArt
	}
	if *buildMaxTracks > 0 {
		opts.MaxTracks = *buildMaxTracks
	}
	if *buildSeed != 0 {
		seed := *buildSeed
		opts.ShuffleSeed = &seed
		opts.Shuffle = true
	}
	if *buildShuffle {
		opts.Shuffle = true
	}
	if *buildDedupe {
		opts.DedupeExact = true
	}
	if *buildPrefer {
		opts.PreferOriginal = true
	}
	if *buildReuse {
		opts.ReuseExisting = true
	}
	if *buildTruncate {
		opts.Truncate = true
	}
	if *buildDate {
		opts.DateStamp = true
	}
	if *buildPublic {
		opts.Public = true
	}
	if *buildTop {
		opts.TopArtists = true
	}
	if *buildFollowed {
		opts.FollowedArtists = true
	}
	if *buildUpload {
		opts.DryRun = false
	}
	return opts
}
