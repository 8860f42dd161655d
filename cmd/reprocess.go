package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/fotofindr/internal/cluster"
	"github.com/kozaktomas/fotofindr/internal/config"
	"github.com/kozaktomas/fotofindr/internal/pipeline"
	"github.com/kozaktomas/fotofindr/internal/storage"
)

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Re-run the enrichment pipeline for all of a user's photos",
	Long: `Re-run the full AI enrichment pipeline for every photo a user has
uploaded. Useful after switching AI providers or when earlier runs were
degraded by provider outages.`,
	RunE: runReprocess,
}

func init() {
	rootCmd.AddCommand(reprocessCmd)
	reprocessCmd.Flags().String("user", "", "User whose photos to reprocess (required)")
	reprocessCmd.Flags().Int("concurrency", 4, "Number of photos to process in parallel")
	_ = reprocessCmd.MarkFlagRequired("user")
}

func runReprocess(cmd *cobra.Command, args []string) error {
	userID, err := cmd.Flags().GetString("user")
	if err != nil {
		return err
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := storage.NewLocalStore(cfg.Storage.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to open upload directory: %w", err)
	}

	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return err
	}

	scorer, err := buildScorer(store)
	if err != nil {
		return fmt.Errorf("failed to build quality scorer: %w", err)
	}

	resolver := cluster.NewResolver(store)
	orch := pipeline.NewOrchestrator(providers, store, blobs, scorer, resolver, pipeline.Options{
		StageTimeout:  time.Duration(cfg.Pipeline.StageTimeoutSec) * time.Second,
		CaptionBudget: time.Duration(cfg.Pipeline.CaptionBudgetSec) * time.Second,
		Workers:       cfg.Pipeline.Workers,
	})

	photos, err := store.ListByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list photos: %w", err)
	}
	if len(photos) == 0 {
		fmt.Printf("No photos found for user %s\n", userID)
		return nil
	}

	fmt.Printf("Photos to reprocess: %d\n\n", len(photos))

	bar := progressbar.NewOptions(len(photos),
		progressbar.OptionSetDescription("Reprocessing"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var successCount, errorCount int
	var mu sync.Mutex
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, photo := range photos {
		wg.Add(1)
		sem <- struct{}{}
		go func(photoID string) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := orch.Reprocess(ctx, photoID)

			mu.Lock()
			if err != nil {
				errorCount++
				fmt.Printf("\nFailed to reprocess %s: %v\n", photoID, err)
			} else {
				successCount++
			}
			mu.Unlock()
			_ = bar.Add(1)
		}(photo.ID)
	}
	wg.Wait()

	fmt.Printf("\n\nDone: %d succeeded, %d failed\n", successCount, errorCount)
	return nil
}
