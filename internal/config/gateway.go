package config

import (
	"time"

	"github.com/spf13/viper"
)

type Gateway struct {
	URL       string
	Retries   int
	RetryWait time.Duration
}

const (
	Cfg_gateway_url       = "gateway.url"
	Cfg_gateway_retries   = "gateway.retries"
	Cfg_gateway_retryWait = "gateway.retryWait"
)

var (
	gatewayDefaults = map[string]interface{}{
		Cfg_gateway_url:       "https://arweave.net/",
		Cfg_gateway_retries:   10,
		Cfg_gateway_retryWait: "30s",
	}
)

func init() {
	for k, v := range gatewayDefaults {
		viper.SetDefault(k, v)
	}
}

func buildGatewayConfig() (*Gateway, error) {
	c := &Gateway{}

	c.URL = viper.GetString(Cfg_gateway_url)
	c.Retries = viper.GetInt(Cfg_gateway_retries)
	c.RetryWait = viper.GetDuration(Cfg_gateway_retryWait)

	return c, nil
}
