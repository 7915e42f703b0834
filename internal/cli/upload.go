package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tcfw/permastore/internal/utils/logging"
	"github.com/tcfw/permastore/pkg/tx"
	"github.com/tcfw/permastore/pkg/uploader"
)

var (
	uploadCmd = &cobra.Command{
		Use:   "upload <file>",
		Short: "store a file on the network",
		Args:  cobra.ExactArgs(1),
		Run:   runUpload,
	}

	uploadReward uint64
)

func init() {
	uploadCmd.Flags().Uint64Var(&uploadReward, "reward", 0, "reward to pay; 0 quotes the gateway")
}

func runUpload(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs
		cancel()
	}()

	c, err := newClient(true)
	if err != nil {
		logging.WithError(err).Error("constructing client")
		return
	}

	out, err := c.UploadFile(ctx, args[0], nil, tx.Amount(uploadReward))
	if err != nil {
		logging.WithError(err).Error("uploading file")

		if out != nil {
			reportPartial(out)
		}

		return
	}

	fmt.Printf("id: %s\nreward: %s\n", out.ID, out.Reward)
}

func reportPartial(out *uploader.Outcome) {
	failed := 0
	for _, r := range out.Chunks {
		if r.State != uploader.ChunkOK {
			failed++
		}
	}

	// the header is already on the network; the upload can be resumed
	fmt.Fprintf(os.Stderr, "incomplete upload of %s: %d of %d chunks outstanding\n",
		out.ID, failed, len(out.Chunks))
}
