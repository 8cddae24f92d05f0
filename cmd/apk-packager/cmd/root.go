package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/apk-packager/internal/config"
	"github.com/oshokin/apk-packager/internal/logger"
	"github.com/oshokin/apk-packager/internal/service/packager"
	"github.com/oshokin/apk-packager/internal/version"
)

const (
	defaultAppName   = "DemoApp"
	defaultPackageID = "com.example.demoapp"
	defaultOutputDir = "./evilapk/"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// appName is the application label and archive base name.
	appName string
	// packageID is the application identifier.
	packageID string
	// outputDir receives the archive.
	outputDir string
	// verbose enables debug logging.
	verbose bool
	// writeReport enables the YAML build report.
	writeReport bool

	// rootCmd represents the base command for generating a package.
	rootCmd = &cobra.Command{
		Use:   version.Name,
		Short: "Generate a minimal installable Android package.",
		Long: `Generates <output>/<name>.apk from scratch.

Each stage uses the Android tools found on PATH (javac, d8/dx, smali, aapt,
keytool, jarsigner, zipalign, apktool.jar) and falls back when they are missing,
so a structurally valid archive is produced even with no tools installed.
The debug signing identity is recreated on every run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Interrupts abort the run between stages without writing an artifact.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			logger.SetVerbose(verbose)

			options := &packager.Options{
				ConfigPath:  configPath,
				AppName:     appName,
				PackageID:   packageID,
				OutputDir:   outputDir,
				WriteReport: writeReport,
			}

			_, err := packager.Run(ctx, options)

			return err
		},
	}
)

// Execute runs the apk-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorKV(context.Background(), "Command failed", "error", err)
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&appName, "name", "n", defaultAppName, "application name")
	flags.StringVarP(&packageID, "package", "p", defaultPackageID, "package name")
	flags.StringVarP(&outputDir, "output", "o", defaultOutputDir, "output directory")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVarP(&configPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+" when present)")
	flags.BoolVar(&writeReport, "report", false, "write <name>.build.yaml next to the package")
}
