package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tcfw/permastore/internal/utils/logging"
)

var (
	priceCmd = &cobra.Command{
		Use:   "price <bytes>",
		Short: "quote the reward for storing a payload",
		Args:  cobra.ExactArgs(1),
		Run:   runPrice,
	}

	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "gateway network info",
		Run:   runInfo,
	}
)

func runPrice(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	size, err := strconv.Atoi(args[0])
	if err != nil {
		logging.WithError(err).Error("parsing size")
		return
	}

	c, err := newClient(false)
	if err != nil {
		logging.WithError(err).Error("constructing client")
		return
	}

	reward, err := c.Price(ctx, size, nil)
	if err != nil {
		logging.WithError(err).Error("quoting price")
		return
	}

	fmt.Println(reward)
}

func runInfo(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := newClient(false)
	if err != nil {
		logging.WithError(err).Error("constructing client")
		return
	}

	info, err := c.Info(ctx)
	if err != nil {
		logging.WithError(err).Error("fetching info")
		return
	}

	s, _ := json.Marshal(info)

	fmt.Printf("%s\n", s)
}
