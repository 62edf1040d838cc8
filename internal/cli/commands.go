package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"viralcut/internal/bootstrap"
	"viralcut/internal/client"
	"viralcut/internal/config"
	clipsv1 "viralcut/internal/contracts/clips/v1"
	"viralcut/internal/pkg/logger"
)

const pollInterval = 2 * time.Second

func addClipFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("clip", nil, "Clip as id:start:end in seconds (repeatable)")
	cmd.Flags().String("aspect", "16:9", "Output aspect ratio: 9:16, 1:1 or 16:9")
}

func clipRequest(cmd *cobra.Command, source string) (clipsv1.ProcessRequest, error) {
	raw, _ := cmd.Flags().GetStringArray("clip")
	aspect, _ := cmd.Flags().GetString("aspect")

	clips, err := parseClips(raw)
	if err != nil {
		return clipsv1.ProcessRequest{}, err
	}
	return clipsv1.ProcessRequest{SourceFilename: source, Clips: clips, AspectRatio: aspect}, nil
}

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <source>",
		Short: "Render clips locally from a file or URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}
	addClipFlags(cmd)
	cmd.Flags().String("out", "out", "Output directory; clips land in <out>/generated")
	cmd.Flags().Int("parallel", 0, "Max clips encoded at once (0 = all)")
	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	dir, name, err := localSource(args[0])
	if err != nil {
		return err
	}
	req, err := clipRequest(cmd, name)
	if err != nil {
		return err
	}
	outDir, _ := cmd.Flags().GetString("out")
	parallel, _ := cmd.Flags().GetInt("parallel")

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}

	cfg := config.Load("viralcut-cli")
	cfg.Storage = config.StorageConfig{Provider: "localfs", LocalRoot: absOut}
	cfg.PublicBaseURL = "file://" + filepath.ToSlash(absOut)
	cfg.MaxParallel = parallel
	if dir != "" {
		cfg.UploadDir = dir
	}
	cfg.Log.Format = "text"
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	core, err := bootstrap.NewCore(ctx, cfg, log)
	if err != nil {
		return err
	}
	resp, err := core.Pipeline.Process(ctx, req, nil)
	if err != nil {
		return err
	}
	printClips(cmd.OutOrStdout(), resp.Clips)
	return nil
}

func apiClient(cmd *cobra.Command) *client.HTTPClient {
	base, _ := cmd.Flags().GetString("api")
	return client.NewHTTPClient(base)
}

func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit <source>",
		Short: "Queue a batch on the API",
		Long:  "Queue a batch on the API. <source> is a file name returned by upload, or a URL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := clipRequest(cmd, args[0])
			if err != nil {
				return err
			}
			wait, _ := cmd.Flags().GetBool("wait")

			c := apiClient(cmd)
			b, err := c.Submit(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !wait {
				printBatch(cmd.OutOrStdout(), b)
				return nil
			}
			return waitBatch(cmd, c, b.ID)
		},
	}
	addClipFlags(cmd)
	cmd.Flags().Bool("wait", false, "Poll until the batch finishes")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <batch-id>",
		Short: "Show a queued batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := apiClient(cmd).Batch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printBatch(cmd.OutOrStdout(), b)
			return nil
		},
	}
}

func waitBatch(cmd *cobra.Command, c *client.HTTPClient, id string) error {
	ctx := cmd.Context()
	t := time.NewTicker(pollInterval)
	defer t.Stop()

	for {
		b, err := c.Batch(ctx, id)
		if err != nil {
			return err
		}
		if b.Status.Terminal() {
			printBatch(cmd.OutOrStdout(), b)
			if b.Status == clipsv1.BatchFailed {
				return fmt.Errorf("batch %s failed", id)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}
