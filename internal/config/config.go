package config

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	defaults = map[string]interface{}{
		"verbose": false,
	}
)

func init() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

func GetConfig() (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigName("permastore")
	viper.AddConfigPath("/etc/permastore/")
	viper.AddConfigPath("$HOME/.permastore")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("PERMASTORE")
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error
			logrus.New().Warnf("no config found")
		} else {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	c := &Config{}

	c.gateway, err = buildGatewayConfig()
	if err != nil {
		return nil, errors.Wrap(err, "gateway config")
	}

	c.wallet, err = buildWalletConfig()
	if err != nil {
		return nil, errors.Wrap(err, "wallet config")
	}

	c.upload, err = buildUploadConfig()
	if err != nil {
		return nil, errors.Wrap(err, "upload config")
	}

	if viper.GetBool("verbose") {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.WithField("level", "debug").Debug("setting log level")
	}

	return c, nil
}

type Config struct {
	gateway *Gateway
	wallet  *Wallet
	upload  *Upload
}

func (c *Config) Gateway() *Gateway {
	return c.gateway
}

func (c *Config) Wallet() *Wallet {
	return c.wallet
}

func (c *Config) Upload() *Upload {
	return c.upload
}
