package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Belphemur/ImageTranslate/internal/browser"
	"github.com/Belphemur/ImageTranslate/internal/cache"
	"github.com/Belphemur/ImageTranslate/internal/config"
	"github.com/Belphemur/ImageTranslate/internal/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "imgtranslate",
	Short: "Translate the text inside images through Google Translate's image mode",
	Long: `imgtranslate drives a headless Chrome through the image mode of Google Translate
and returns the rendered, translated image.

Use "imgtranslate serve" to run the HTTP API or "imgtranslate translate <image>"
for a single file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		_, err := config.Initialize()
		return err
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log_level", "", "log level (trace, debug, info, warn, error)")
	flags.Bool("browser.headless", true, "run Chrome without a window")
	flags.String("browser.exec_path", "", "path to the Chrome binary")
	flags.String("browser.work_dir", "", "directory for temporary uploads and error screenshots")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger := config.GetLogger()
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// newTranslator wires the browser driver and the optional result cache.
func newTranslator(cfg *config.Config) (services.ImageTranslator, *browser.Driver, *cache.ResultCache, error) {
	driver := browser.NewDriver(browser.NewChromeSession, browser.DriverOptionsFromConfig(cfg))

	results, err := cache.NewResultCacheFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return services.NewImageTranslator(driver, results), driver, results, nil
}
