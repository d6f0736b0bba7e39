package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/voyagen/stalker2m3u/internal/models"
	"github.com/voyagen/stalker2m3u/internal/playlist"
	"github.com/voyagen/stalker2m3u/internal/service"
)

type convertFlags struct {
	portal      string
	mac         string
	out         string
	mode        string
	concurrency int
	rps         float64
	maxPages    int
	timeout     time.Duration
}

func newConvertCmd(root *rootOptions) *cobra.Command {
	f := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert one portal and write the playlist to a file or stdout",
		Example: `  stalker2m3u convert --portal http://example.com/c --mac 00:1A:79:12:34:56 --out playlist.m3u
  stalker2m3u convert --portal http://example.com/c --mac 001a79123456 --mode flat > playlist.m3u`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			opts := converterOptions(cfg)
			flags := cmd.Flags()
			if flags.Changed("mode") {
				opts.Mode = models.EnumerationMode(f.mode)
				if !opts.Mode.Valid() {
					return fmt.Errorf("--mode must be %q or %q", models.ModeCategory, models.ModeFlat)
				}
			}
			if flags.Changed("concurrency") {
				opts.Concurrency = f.concurrency
			}
			if flags.Changed("rps") {
				opts.RequestsPerSecond = f.rps
			}
			if flags.Changed("max-pages") {
				opts.MaxPages = f.maxPages
			}
			if flags.Changed("timeout") {
				opts.Timeout = f.timeout
			}

			conv, err := service.NewConverter(opts).Convert(cmd.Context(), service.Request{
				PortalURL:  f.portal,
				MACAddress: f.mac,
			})
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), f.out, conv); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "channels=%d movies=%d series=%d total=%d\n",
				conv.ChannelCount, conv.MovieCount, conv.SeriesCount, conv.TotalCount)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.portal, "portal", "", "portal URL, e.g. http://example.com/c (required)")
	fl.StringVar(&f.mac, "mac", "", "device MAC address (required)")
	fl.StringVarP(&f.out, "out", "o", "", "output file; stdout when empty or \"-\"")
	fl.StringVar(&f.mode, "mode", string(models.ModeCategory), "VOD enumeration mode: category or flat")
	fl.IntVar(&f.concurrency, "concurrency", 1, "parallel stream link resolutions")
	fl.Float64Var(&f.rps, "rps", 0, "max portal requests per second (0 = unlimited)")
	fl.IntVar(&f.maxPages, "max-pages", 0, "max pages per category (0 = unlimited)")
	fl.DurationVar(&f.timeout, "timeout", 30*time.Second, "per-request timeout")
	_ = cmd.MarkFlagRequired("portal")
	_ = cmd.MarkFlagRequired("mac")
	return cmd
}

func writeOutput(stdout, stderr io.Writer, path string, conv *models.Conversion) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(stdout, conv.Playlist)
		return err
	}
	if err := playlist.WriteFile(path, conv.Entries); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "wrote %s\n", path)
	return nil
}
