package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tcfw/permastore/internal/config"
	"github.com/tcfw/permastore/pkg/client"
	"github.com/tcfw/permastore/pkg/gateway"
	"github.com/tcfw/permastore/pkg/uploader"
)

var (
	rootCmd = &cobra.Command{
		Use:   "permastore",
		Short: "Client for the permanent storage network",
	}
)

func Execute() error {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase verbosity")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	regCommands()

	return rootCmd.Execute()
}

// newClient wires a client from config. Read-only commands skip the
// wallet so they work without a key file.
func newClient(withWallet bool) (*client.Client, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}

	opts := []client.Option{
		client.WithGatewayURL(cfg.Gateway().URL),
		client.WithGatewayOptions(
			gateway.WithRetries(cfg.Gateway().Retries),
			gateway.WithRetryWait(cfg.Gateway().RetryWait),
		),
		client.WithUploaderOptions(
			uploader.WithConcurrency(cfg.Upload().Concurrency),
		),
	}

	if withWallet {
		opts = append(opts, client.WithWalletFile(cfg.Wallet().KeyFile))
	}

	if p := cfg.Upload().JournalPath; p != "" {
		opts = append(opts, client.WithJournal(p))
	}

	return client.New(opts...)
}
