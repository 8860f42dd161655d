package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fotofindr",
	Short: "A photo service with AI enrichment and natural-language search",
	Long: `FotoFindr ingests photos, enriches them with AI models (captioning,
object detection, emotions, face recognition, quality scoring) and lets
you search your library with plain-English queries.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
