package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tcfw/permastore/internal/config"
	"github.com/tcfw/permastore/internal/utils/logging"
	"github.com/tcfw/permastore/pkg/crypto"
	"github.com/tcfw/permastore/pkg/tx"
)

var (
	walletCmd = &cobra.Command{
		Use:   "wallet",
		Short: "Wallet commands",
	}

	wallet_addressCmd = &cobra.Command{
		Use:   "address",
		Short: "print the wallet address",
		Run:   runWalletAddress,
	}

	wallet_keygenCmd = &cobra.Command{
		Use:   "keygen",
		Short: "generate a new wallet key file",
		Run:   runWalletKeygen,
	}
)

func runWalletAddress(cmd *cobra.Command, args []string) {
	c, err := newClient(true)
	if err != nil {
		logging.WithError(err).Error("constructing client")
		return
	}

	fmt.Println(c.Address())
}

func runWalletKeygen(cmd *cobra.Command, args []string) {
	cfg, err := config.GetConfig()
	if err != nil {
		logging.WithError(err).Error("loading config")
		return
	}

	path := cfg.Wallet().KeyFile

	if _, err := os.Stat(path); err == nil {
		logging.Entry().WithField("path", path).Error("key file already exists, refusing to overwrite")
		return
	}

	s, err := crypto.GenerateSigner(nil)
	if err != nil {
		logging.WithError(err).Error("generating key")
		return
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		logging.WithError(err).Error("creating wallet dir")
		return
	}

	if err := s.WriteKeyFile(path); err != nil {
		logging.WithError(err).Error("writing key file")
		return
	}

	fmt.Printf("wrote %s\naddress: %s\n", path, tx.Base64(s.Address()))
}
