package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Wallet struct {
	KeyFile string
}

const (
	Cfg_wallet_keyFile = "wallet.keyFile"
)

func init() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	viper.SetDefault(Cfg_wallet_keyFile, filepath.Join(home, ".permastore", "wallet.json"))
}

func buildWalletConfig() (*Wallet, error) {
	c := &Wallet{}

	c.KeyFile = viper.GetString(Cfg_wallet_keyFile)

	return c, nil
}
