package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/pavelbre/copycheck/internal/ai"
	"github.com/pavelbre/copycheck/internal/config"
	"github.com/pavelbre/copycheck/internal/fingerprint"
	"github.com/pavelbre/copycheck/internal/hosting"
	"github.com/pavelbre/copycheck/internal/lens"
	"github.com/pavelbre/copycheck/internal/pipeline"
	"github.com/pavelbre/copycheck/internal/report"
	"github.com/pavelbre/copycheck/internal/risk"
)

var checkCmd = &cobra.Command{
	Use:   "check <image-path> [image-path...]",
	Short: "Check images for copyright risk",
	Long: `Check one or more images for copyright risk.

Each image is uploaded to temporary hosting, analyzed for artistic style
by an AI model, reverse-searched with Google Lens, and compared against
the search matches with a perceptual hash. The combined signals produce
a SAFE / CAUTION / DANGER recommendation per image.

Arguments may be image files or directories. Supported formats:
jpg, jpeg, png, gif, bmp, webp

Example:
  copycheck check artwork.png
  copycheck check --provider gemini --csv report.csv /path/to/renders`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().String("provider", "openai", "AI provider to use: openai, gemini")
	checkCmd.Flags().Float64("threshold", 0, "pHash similarity threshold (0 = use config)")
	checkCmd.Flags().Int("max-matches", 0, "Max reverse-search matches per image (0 = use config)")
	checkCmd.Flags().String("csv", "", "Write the reports to a CSV file")
	checkCmd.Flags().BoolP("recursive", "r", false, "Search for images recursively in subdirectories")
	checkCmd.Flags().Bool("verbose", false, "Enable debug logging")
}

// isImageFile checks if a file has a supported image extension
func isImageFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	supported := map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".bmp":  true,
		".webp": true,
	}
	return supported[ext]
}

// collectImages expands files and directories into a flat list of image paths.
func collectImages(args []string, recursive bool) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if !info.IsDir() {
			if !isImageFile(arg) {
				return nil, fmt.Errorf("%s is not a supported image format", arg)
			}
			paths = append(paths, arg)
			continue
		}

		if recursive {
			err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.IsDir() && isImageFile(path) {
					paths = append(paths, path)
				}
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("walking %s: %w", arg, err)
			}
		} else {
			entries, err := os.ReadDir(arg)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", arg, err)
			}
			for _, entry := range entries {
				if !entry.IsDir() && isImageFile(entry.Name()) {
					paths = append(paths, filepath.Join(arg, entry.Name()))
				}
			}
		}
	}
	return paths, nil
}

// newAnalyzer creates an AI analyzer based on the provider selection.
func newAnalyzer(ctx context.Context, cfg *config.Config, providerName string) (ai.Analyzer, error) {
	switch providerName {
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN environment variable is required")
		}
		pricing := cfg.GetModelPricing("gpt-4.1-mini")
		return ai.NewOpenAIAnalyzer(cfg.OpenAI.Token,
			ai.RequestPricing{Input: pricing.Input, Output: pricing.Output},
		), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY environment variable is required")
		}
		pricing := cfg.GetModelPricing("gemini-2.5-flash")
		analyzer, err := ai.NewGeminiAnalyzer(ctx, cfg.Gemini.APIKey,
			ai.RequestPricing{Input: pricing.Input, Output: pricing.Output},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini analyzer: %w", err)
		}
		return analyzer, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, gemini)", providerName)
	}
}

// newRunner wires the pipeline collaborators from configuration.
func newRunner(cfg *config.Config, analyzer ai.Analyzer, logger *slog.Logger) (*pipeline.Runner, error) {
	if cfg.SerpAPI.APIKey == "" {
		return nil, errors.New("SERPAPI_API_KEY environment variable is required")
	}

	host := hosting.NewClient(cfg.Hosting.BaseURL)
	searcher := &pipeline.LensSearcher{
		Client: lens.NewClient(cfg.SerpAPI.APIKey, lens.WithLocale(cfg.SerpAPI.Locale, cfg.SerpAPI.Country)),
	}
	scorer := fingerprint.NewScorer(fingerprint.NewHTTPFetcher(nil))

	return pipeline.NewRunner(host, analyzer, searcher, scorer, logger), nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	providerName := mustGetString(cmd, "provider")
	threshold := mustGetFloat64(cmd, "threshold")
	maxMatches := mustGetInt(cmd, "max-matches")
	csvPath := mustGetString(cmd, "csv")
	recursive := mustGetBool(cmd, "recursive")
	verbose := mustGetBool(cmd, "verbose")

	if threshold == 0 {
		threshold = cfg.Analysis.Threshold
	}
	if maxMatches == 0 {
		maxMatches = cfg.Analysis.MaxMatches
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	paths, err := collectImages(args, recursive)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no images found")
	}

	images := make([]pipeline.Image, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		images = append(images, pipeline.Image{Filename: filepath.Base(path), Data: data})
	}

	// Set up context with signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	analyzer, err := newAnalyzer(ctx, cfg, providerName)
	if err != nil {
		return err
	}
	runner, err := newRunner(cfg, analyzer, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Checking %d images\n", len(images))
	fmt.Printf("Provider: %s\n", analyzer.Name())
	fmt.Printf("Threshold: %.2f\n", threshold)
	fmt.Println()

	bar := progressbar.NewOptions(len(images),
		progressbar.OptionSetDescription("Checking images"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	reports, runErr := runner.Run(ctx, images, pipeline.Options{
		Threshold:  threshold,
		MaxMatches: maxMatches,
		OnProgress: func(p pipeline.Progress) {
			switch p.Stage {
			case pipeline.StageUploading:
				bar.Describe(fmt.Sprintf("[%d/%d] %s", p.ImageIndex, p.TotalImages, p.Detail))
			case pipeline.StagePHash:
				_ = bar.Add(1)
			}
		},
	})
	_ = bar.Finish()
	fmt.Println()

	printReports(reports)

	if csvPath != "" && len(reports) > 0 {
		if err := writeCSVFile(csvPath, reports); err != nil {
			return err
		}
		fmt.Printf("\nCSV report written to %s\n", csvPath)
	}

	// Print usage and cost
	usage := analyzer.GetUsage()
	if usage.InputTokens > 0 || usage.OutputTokens > 0 {
		fmt.Printf("\nAPI Usage:\n")
		fmt.Printf("  Input tokens: %d\n", usage.InputTokens)
		fmt.Printf("  Output tokens: %d\n", usage.OutputTokens)
		fmt.Printf("  Total cost: $%.4f\n", usage.TotalCost)
	}

	if runErr != nil {
		return fmt.Errorf("check failed after %d images: %w", len(reports), runErr)
	}
	return nil
}

func printReports(reports []report.ImageReport) {
	for _, r := range reports {
		fmt.Printf("%s: %s\n", r.Filename, r.Overall)
		if r.Style.StyleDescription != "" {
			fmt.Printf("  Style: %s\n", r.Style.StyleDescription)
		}
		if len(r.Style.SimilarArtists) > 0 {
			fmt.Printf("  Similar artists: %s\n", strings.Join(r.Style.SimilarArtists, ", "))
		}
		for _, factor := range r.Style.RiskFactors {
			fmt.Printf("  Risk factor: %s\n", factor)
		}
		if len(r.Matches) > 0 {
			fmt.Printf("  Top match: %s (%s)\n", r.Matches[0].Title, r.Matches[0].Link)
		}
		if best, ok := risk.MaxValidScore(r.Scores); ok {
			fmt.Printf("  Max pHash similarity: %.3f\n", best)
		}
	}
}

func writeCSVFile(path string, reports []report.ImageReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := report.WriteCSV(f, reports); err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	return nil
}
