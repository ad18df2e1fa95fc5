package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Belphemur/ImageTranslate/internal/config"
	"github.com/Belphemur/ImageTranslate/internal/intake"
	"github.com/Belphemur/ImageTranslate/internal/langcode"
	"github.com/Belphemur/ImageTranslate/internal/models"
	"github.com/Belphemur/ImageTranslate/internal/proxy"
)

var (
	sourceLang string
	targetLang string
	proxyURL   string
	useTor     bool
	timeout    time.Duration
	outputFile string
)

var translateCmd = &cobra.Command{
	Use:   "translate <image>",
	Short: "Translate a single image file",
	Long: `Translate a single image and write the result next to it as
<name>_translated.<ext>, or to the path given with --output.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return translateFile(cmd.Context(), args[0])
	},
}

func init() {
	flags := translateCmd.Flags()
	flags.StringVarP(&sourceLang, "source", "s", models.DefaultSourceLang, "source language code or auto")
	flags.StringVarP(&targetLang, "target", "t", models.DefaultTargetLang, "target language code")
	flags.StringVar(&proxyURL, "proxy", "", "proxy URL for the browser (socks5://, http://)")
	flags.BoolVar(&useTor, "tor", false, "route the browser through the Tor SOCKS proxy")
	flags.DurationVar(&timeout, "timeout", 0, "rendering budget (defaults to translation.default_timeout_ms)")
	flags.StringVarP(&outputFile, "output", "o", "", "output file path")
	rootCmd.AddCommand(translateCmd)
}

func translateFile(ctx context.Context, path string) error {
	cfg := config.GetConfig()
	logger := config.GetLogger()

	payload, err := intake.FromFile(path)
	if err != nil {
		return err
	}
	src, err := langcode.Validate("source", sourceLang, models.DefaultSourceLang, true)
	if err != nil {
		return err
	}
	tgt, err := langcode.Validate("target", targetLang, models.DefaultTargetLang, false)
	if err != nil {
		return err
	}
	resolved, viaTor, err := proxy.Resolve(proxyURL, useTor, cfg)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = cfg.DefaultTimeout()
	}

	translator, _, results, err := newTranslator(cfg)
	if err != nil {
		return err
	}
	defer results.Close()

	logger.Info().
		Str("file", path).
		Str("source_lang", src).
		Str("target_lang", tgt).
		Bool("tor", viaTor).
		Dur("timeout", timeout).
		Msg("Translating image")

	result, err := translator.Translate(ctx, models.TranslationRequest{
		Image:      payload,
		SourceLang: src,
		TargetLang: tgt,
		Proxy:      resolved,
		Tor:        viaTor,
		Timeout:    timeout,
	})
	if err != nil {
		return err
	}

	out := outputFile
	if out == "" {
		out = filepath.Join(filepath.Dir(path), result.Filename)
	}
	if err := os.WriteFile(out, result.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	logger.Info().Str("output", out).Int("bytes", len(result.Data)).Msg("Translated image written")
	return nil
}
