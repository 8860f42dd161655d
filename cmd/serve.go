package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/fotofindr/internal/ai"
	"github.com/kozaktomas/fotofindr/internal/cluster"
	"github.com/kozaktomas/fotofindr/internal/config"
	"github.com/kozaktomas/fotofindr/internal/database"
	"github.com/kozaktomas/fotofindr/internal/database/postgres"
	"github.com/kozaktomas/fotofindr/internal/database/sqlite"
	"github.com/kozaktomas/fotofindr/internal/pipeline"
	"github.com/kozaktomas/fotofindr/internal/quality"
	"github.com/kozaktomas/fotofindr/internal/search"
	"github.com/kozaktomas/fotofindr/internal/storage"
	"github.com/kozaktomas/fotofindr/internal/web"
	"github.com/kozaktomas/fotofindr/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the FotoFindr API server.
Uploads are accepted immediately and enriched in the background by the
pipeline workers. Search becomes available as soon as photos finish
processing.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// buildStore picks PostgreSQL when DATABASE_URL is set, otherwise the
// embedded SQLite file.
func buildStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	if cfg.Database.URL != "" {
		fmt.Println("Using PostgreSQL backend")
		store, err := postgres.NewStore(cfg.Database.URL, postgres.Options{
			MaxOpenConns: cfg.Database.MaxOpenConns,
			MaxIdleConns: cfg.Database.MaxIdleConns,
			PhotoDim:     cfg.Embedding.Dim,
			FaceDim:      cfg.Embedding.FaceDim,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return store, nil
	}

	fmt.Printf("Using SQLite backend at %s\n", cfg.Database.SQLitePath)
	store, err := sqlite.NewStore(cfg.Database.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return store, nil
}

// buildProviders wires the AI clients that have credentials configured.
// Missing providers are left nil so the pipeline degrades per stage
// instead of failing whole photos.
func buildProviders(ctx context.Context, cfg *config.Config) (pipeline.Providers, error) {
	var providers pipeline.Providers

	if cfg.Gemini.APIKey != "" {
		captioner, err := ai.NewGeminiCaptioner(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return providers, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		providers.Captioner = captioner
	} else {
		fmt.Println("GEMINI_API_KEY not set, captioning disabled")
	}

	if cfg.OpenAI.APIKey != "" {
		providers.Objects = ai.NewOpenAIObjectDetector(cfg.OpenAI.APIKey)
	} else {
		fmt.Println("OPENAI_API_KEY not set, object detection disabled")
	}

	// the emotion client falls back to caption keywords when no remote
	// service is configured, so it is always wired
	providers.Emotions = ai.NewEmotionClient(cfg.Emotion.URL, cfg.Emotion.APIKey)

	if cfg.Faces.URL != "" {
		providers.Faces = ai.NewFaceClient(cfg.Faces.URL)
	} else {
		fmt.Println("FACE_API_URL not set, face recognition disabled")
	}

	providers.Embedder = ai.NewEmbeddingClient(cfg.Embedding.URL)

	return providers, nil
}

func buildScorer(hashes database.HashIndex) (*quality.Scorer, error) {
	screens, err := config.ScreenResolutions()
	if err != nil {
		return nil, err
	}
	resolutions := make([][2]int, 0, len(screens))
	for _, s := range screens {
		resolutions = append(resolutions, [2]int{s.Width, s.Height})
	}
	return quality.NewScorer(hashes, resolutions), nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	blobs, err := storage.NewLocalStore(cfg.Storage.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
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

	queue := pipeline.NewQueue(orch, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize)
	queue.Start(ctx)

	engine := search.NewEngine(store)
	h := handlers.New(cfg, store, store, blobs, queue, engine, providers.Embedder, resolver)
	server := web.NewServer(cfg, h, blobs.Dir())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
		queue.Stop()
		cancel()
	}()

	fmt.Printf("Starting FotoFindr API on http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
