package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	byujwt "github.com/byu-oit/byu-jwt-go"
)

var BuildVersion = "dev"

type rootOptions struct {
	envFile  string
	logLevel string
	config   byujwt.Config

	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithOptions(&rootOptions{})
}

func newRootCmdWithOptions(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "byujwt",
		Short:         "BYU JWT CLI",
		Long:          "Decode and verify BYU API gateway JWTs against the issuer's certificates.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.complete(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading BYU_JWT_* variables")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.config.Issuer, "issuer", "", "issuer host or URL ("+envIssuer+")")
	flags.StringVar(&opts.config.OpenIDConfigURL, "openid-config-url", "", "discovery document URL ("+envOpenIDConfigURL+")")
	flags.DurationVar(&opts.config.CacheDuration, "cache-duration", 0, "fallback cache lifetime ("+envCacheDuration+")")
	flags.BoolVar(&opts.config.Development, "development", false, "skip signature verification ("+envDevelopment+")")
	flags.StringVar(&opts.config.BasePath, "base-path", "", "required API context prefix ("+envBasePath+")")
	flags.DurationVar(&opts.config.HTTPTimeout, "http-timeout", 0, "timeout for issuer requests ("+envHTTPTimeout+")")
	flags.DurationVar(&opts.config.ClockSkew, "clock-skew", 0, "tolerated clock drift ("+envClockSkew+")")

	cmd.AddCommand(
		newDecodeCmd(),
		newVerifyCmd(opts),
		newOpenIDConfigCmd(opts),
		newCertsCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// complete fills unset flags from the environment and sets up logging.
func (o *rootOptions) complete(cmd *cobra.Command) error {
	if err := loadEnvFiles(o.envFile); err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("issuer") {
		o.config.Issuer = getEnv(envIssuer, o.config.Issuer)
	}
	if !flags.Changed("openid-config-url") {
		o.config.OpenIDConfigURL = getEnv(envOpenIDConfigURL, o.config.OpenIDConfigURL)
	}
	if !flags.Changed("cache-duration") {
		o.config.CacheDuration = getEnvAsDuration(envCacheDuration, o.config.CacheDuration)
	}
	if !flags.Changed("development") {
		o.config.Development = getEnvAsBool(envDevelopment, o.config.Development)
	}
	if !flags.Changed("base-path") {
		o.config.BasePath = getEnv(envBasePath, o.config.BasePath)
	}
	if !flags.Changed("http-timeout") {
		o.config.HTTPTimeout = getEnvAsDuration(envHTTPTimeout, o.config.HTTPTimeout)
	}
	if !flags.Changed("clock-skew") {
		o.config.ClockSkew = getEnvAsDuration(envClockSkew, o.config.ClockSkew)
	}
	if !flags.Changed("log-level") {
		o.logLevel = getEnv(envLogLevel, o.logLevel)
	}

	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	o.logger = logrus.New()
	o.logger.SetOutput(cmd.ErrOrStderr())
	o.logger.SetLevel(level)
	o.logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339})

	return nil
}

func (o *rootOptions) authenticator(extra ...byujwt.Option) (*byujwt.Authenticator, error) {
	return byujwt.New(append([]byujwt.Option{
		byujwt.WithConfig(o.config),
		byujwt.WithLogger(byujwt.NewLogrusLogger(o.logger)),
	}, extra...)...)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the byujwt CLI",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", BuildVersion)
		},
	}
}
