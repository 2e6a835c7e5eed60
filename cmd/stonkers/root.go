package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/kerbaras/stonkers/pkg/auth"
	"github.com/kerbaras/stonkers/pkg/config"
	"github.com/kerbaras/stonkers/pkg/data"
	"github.com/kerbaras/stonkers/pkg/format"
	"github.com/kerbaras/stonkers/pkg/logging"
	"github.com/kerbaras/stonkers/pkg/services"
	"github.com/kerbaras/stonkers/pkg/sources"
	"github.com/kerbaras/stonkers/pkg/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	credsFile  string
	tokenFile  string
	configFile string
	outputFlag string
	verbose    bool
	debug      bool

	settings *config.Settings
	output   format.Format
)

var rootCmd = &cobra.Command{
	Use:           "stonkers",
	Short:         "Market data, option wheels and rebalancing for your brokerage account",
	Long:          "Retrieve and analyse quotes, option chains, accounts and positions from TD Ameritrade",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.LoadSettings(configFile)
		if err != nil {
			return err
		}

		logging.Setup(os.Stderr, logging.Level(settings.LogLevel, verbose, debug))

		output, err = format.ParseFormat(outputFlag)
		return err
	},
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&credsFile, "creds-file", "c", envOr("CREDS_FILE", config.DefaultPath("creds.yaml")), "Credentials file, - for stdin (env CREDS_FILE)")
	flags.StringVarP(&tokenFile, "token-file", "t", envOr("TOKEN_FILE", config.DefaultPath("token.json")), "OAuth token file (env TOKEN_FILE)")
	flags.StringVar(&configFile, "config", config.DefaultPath("config.yaml"), "Settings file")
	flags.StringVarP(&outputFlag, "output", "o", string(format.Console), "Output format: json, yaml or console")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log progress")
	flags.BoolVar(&debug, "debug", false, "Log requests and cache activity")

	rootCmd.Flags().BoolP("version", "V", false, "Print the version")
}

// newClient authenticates against the broker and opens the local store.
// Without a stored token the login runs only when interactive is set.
func newClient(ctx context.Context, interactive bool) (*services.Client, func(), error) {
	creds, err := config.LoadCredentials(credsFile)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (run stonkers setup)", err)
	}

	httpClient, err := auth.New(*creds, tokenFile).Client(ctx, interactive)
	if err != nil {
		return nil, nil, err
	}
	broker := sources.NewTDAmeritrade(httpClient, settings.BaseURL, utils.WithMaxElapsed(settings.RetryMaxElapsed))

	opts := []services.ClientOption{services.WithHistoryTTL(settings.HistoryTTL)}
	closeRepo := func() {}
	repo, err := data.NewDuckDBRepository(settings.Database)
	if err != nil {
		log.Warn().Err(err).Str("path", settings.Database).Msg("local store unavailable, price history will not be kept")
	} else {
		opts = append(opts, services.WithRepository(repo))
		closeRepo = func() {
			if err := repo.Close(); err != nil {
				log.Warn().Err(err).Msg("closing local store")
			}
		}
	}

	return services.NewClient(broker, settings.CacheTTL, opts...), closeRepo, nil
}

func render(cmd *cobra.Command, f *format.Frame) error {
	return format.Render(cmd.OutOrStdout(), output, f)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
