package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tcfw/permastore/internal/utils/logging"
	"github.com/tcfw/permastore/pkg/gateway"
	"github.com/tcfw/permastore/pkg/tx"
)

var (
	txCmd = &cobra.Command{
		Use:   "tx",
		Short: "Transaction commands",
	}

	tx_statusCmd = &cobra.Command{
		Use:   "status <id>",
		Short: "confirmation status of a transaction",
		Args:  cobra.ExactArgs(1),
		Run:   runTxStatus,
	}

	tx_dataCmd = &cobra.Command{
		Use:   "data <id>",
		Short: "fetch a transaction's payload",
		Args:  cobra.ExactArgs(1),
		Run:   runTxData,
	}
)

func runTxStatus(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	id, err := tx.DecodeBase64(args[0])
	if err != nil {
		logging.WithError(err).Error("decoding transaction id")
		return
	}

	c, err := newClient(false)
	if err != nil {
		logging.WithError(err).Error("constructing client")
		return
	}

	state, rec, err := c.TxStatus(ctx, id)
	if err != nil {
		logging.WithError(err).Error("fetching status")
		return
	}

	if state == gateway.StatePending {
		fmt.Println("pending")
		return
	}

	s, _ := json.Marshal(rec)

	fmt.Printf("%s\n", s)
}

func runTxData(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	id, err := tx.DecodeBase64(args[0])
	if err != nil {
		logging.WithError(err).Error("decoding transaction id")
		return
	}

	c, err := newClient(false)
	if err != nil {
		logging.WithError(err).Error("constructing client")
		return
	}

	state, data, err := c.TxData(ctx, id)
	if err != nil {
		logging.WithError(err).Error("fetching data")
		return
	}

	if state == gateway.StatePending {
		fmt.Fprintln(os.Stderr, "pending")
		return
	}

	os.Stdout.Write(data)
}
