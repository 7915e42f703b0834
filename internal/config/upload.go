package config

import (
	"github.com/spf13/viper"
)

type Upload struct {
	Concurrency int
	JournalPath string
}

const (
	Cfg_upload_concurrency = "upload.concurrency"
	Cfg_upload_journalPath = "upload.journalPath"
)

var (
	uploadDefaults = map[string]interface{}{
		Cfg_upload_concurrency: 100,
		Cfg_upload_journalPath: "",
	}
)

func init() {
	for k, v := range uploadDefaults {
		viper.SetDefault(k, v)
	}
}

func buildUploadConfig() (*Upload, error) {
	c := &Upload{}

	c.Concurrency = viper.GetInt(Cfg_upload_concurrency)
	c.JournalPath = viper.GetString(Cfg_upload_journalPath)

	return c, nil
}
