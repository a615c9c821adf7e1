package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"article-reader/internal/config"
	"article-reader/internal/domain"
	"article-reader/internal/handler"
)

var (
	syncArticleURL   string
	exportArticleURL string
	exportOutputPath string
)

var rootCmd = &cobra.Command{
	Use:   "article-reader",
	Short: "Offline-first article reader with highlight sync",
	Long: `A local-first reading service: articles are extracted and cached for
offline reading, highlights are stored locally and synced to the remote
highlight service whenever the network allows.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP reader service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Flush pending highlight operations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), syncArticleURL)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an article's highlights as markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), exportArticleURL, exportOutputPath)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncArticleURL, "article", "", "Article URL to sync (default: all annotated articles)")
	exportCmd.Flags().StringVar(&exportArticleURL, "article", "", "Article URL to export (required)")
	exportCmd.Flags().StringVar(&exportOutputPath, "out", "", "Output file (default: stdout)")
	_ = exportCmd.MarkFlagRequired("article")

	rootCmd.AddCommand(serveCmd, syncCmd, exportCmd)
}

func newContainer() (*config.Container, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}
	return config.NewContainer()
}

func runServe() error {
	container, err := newContainer()
	if err != nil {
		return fmt.Errorf("wiring failed: %w", err)
	}
	defer container.Close()

	router := handler.NewRouter(container)

	server := &http.Server{
		Addr:    ":" + container.Config.GetServerPort(),
		Handler: router,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Error("Server failed to start", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown. Close rather than Shutdown: state streams are
	// long-lived WebSocket connections that would keep Shutdown waiting.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	container.Logger.Info("Shutting down server...")
	_ = server.Close()

	container.Logger.Info("Server exited")
	return nil
}

func runSync(ctx context.Context, articleURL string) error {
	container, err := newContainer()
	if err != nil {
		return fmt.Errorf("wiring failed: %w", err)
	}
	defer container.Close()

	urls := []string{articleURL}
	if articleURL == "" {
		urls, err = container.StoreRepository.ListArticleURLs(ctx)
		if err != nil {
			return fmt.Errorf("listing annotated articles: %w", err)
		}
		if len(urls) == 0 {
			fmt.Println("nothing to sync")
			return nil
		}
	}

	failed := 0
	for _, url := range urls {
		container.SyncEngine.Sync(ctx, url)

		state, err := container.HighlightService.State(ctx, url)
		if err != nil {
			return fmt.Errorf("reading state for %s: %w", url, err)
		}
		fmt.Printf("%s: %s (%d highlights)\n", url, state.SyncStatus, len(state.Highlights))
		if state.SyncStatus == domain.EngineFailed || state.SyncStatus == domain.EngineOffline {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d articles did not fully sync", failed, len(urls))
	}
	return nil
}

func runExport(ctx context.Context, articleURL, outputPath string) error {
	container, err := newContainer()
	if err != nil {
		return fmt.Errorf("wiring failed: %w", err)
	}
	defer container.Close()

	markdown, err := container.ExportService.ExportMarkdown(ctx, articleURL)
	if err != nil {
		return err
	}

	if outputPath == "" {
		fmt.Print(markdown)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputPath, err)
	}
	fmt.Printf("exported to %s\n", outputPath)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
