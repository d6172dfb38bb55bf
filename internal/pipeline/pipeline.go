// Package pipeline drives the multi-stage analysis of a batch of images:
// temporary hosting, AI style analysis, reverse image search, perceptual
// similarity scoring and risk fusion. Images are processed strictly one
// at a time in input order; within one image, independent stages run
// concurrently.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pavelbre/copycheck/internal/ai"
	"github.com/pavelbre/copycheck/internal/report"
	"github.com/pavelbre/copycheck/internal/risk"
)

// Stage identifies where the pipeline currently is for one image.
type Stage string

// Pipeline stages in execution order.
const (
	StageUploading Stage = "uploading"
	StageAnalyzing Stage = "analyzing"
	StageSearching Stage = "searching"
	StagePHash     Stage = "phash"
	StageDone      Stage = "done"
	StageError     Stage = "error"
)

// Progress describes the pipeline position. It is emitted on every stage
// transition and overwritten by the next event; it is not part of any
// report.
type Progress struct {
	ImageIndex  int    `json:"current_image"` // 1-based
	TotalImages int    `json:"total_images"`
	Stage       Stage  `json:"stage"`
	Detail      string `json:"detail"`
}

// Host uploads raw image bytes and returns a publicly fetchable URL.
type Host interface {
	Upload(ctx context.Context, imageData []byte) (string, error)
}

// Analyzer produces a style verdict for raw image bytes.
type Analyzer interface {
	AnalyzeStyle(ctx context.Context, imageData []byte, mimeType string) (*risk.StyleVerdict, error)
}

// Searcher finds visually similar images for a hosted image URL.
type Searcher interface {
	Search(ctx context.Context, imageURL string) ([]risk.Match, error)
}

// Scorer computes perceptual similarity against reference matches.
type Scorer interface {
	Score(ctx context.Context, targetData []byte, matches []risk.Match) []risk.Score
}

// Image is one input to a batch run.
type Image struct {
	Filename string
	Data     []byte
}

// Options tune one batch run.
type Options struct {
	// Threshold is the similarity above which a match escalates to
	// CAUTION. Zero selects risk.DefaultThreshold.
	Threshold float64
	// MaxMatches caps the reverse-search matches considered per image.
	// Zero selects 5.
	MaxMatches int
	// OnProgress, when set, receives every stage transition. Events
	// arrive strictly in stage order.
	OnProgress func(Progress)
}

const defaultMaxMatches = 5

// styleAnalysisAttempts bounds the retry policy around the analyzer.
const styleAnalysisAttempts = 2

// degradedVerdict substitutes for a style verdict when the analyzer
// failed all attempts. A failed AI call biases toward caution rather
// than silently dropping the signal.
var degradedVerdict = risk.StyleVerdict{
	SimilarArtists:   []string{},
	StyleDescription: "analysis unavailable",
	RiskFactors:      []string{},
	Recommendation:   risk.Caution,
}

// Runner orchestrates batch analysis over its collaborators.
type Runner struct {
	host     Host
	analyzer Analyzer
	searcher Searcher
	scorer   Scorer
	logger   *slog.Logger
}

// NewRunner wires a pipeline. A nil logger selects slog.Default().
func NewRunner(host Host, analyzer Analyzer, searcher Searcher, scorer Scorer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		host:     host,
		analyzer: analyzer,
		searcher: searcher,
		scorer:   scorer,
		logger:   logger,
	}
}

// Run analyzes every image in order and returns one report per image.
// Non-critical failures (style analysis, search, individual similarity
// comparisons) degrade gracefully and are reflected in the report data.
// An upload failure is fatal: it aborts the run, and already-completed
// reports are returned alongside the error. Later images are never
// started.
func (r *Runner) Run(ctx context.Context, images []Image, opts Options) ([]report.ImageReport, error) {
	if opts.Threshold <= 0 {
		opts.Threshold = risk.DefaultThreshold
	}
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = defaultMaxMatches
	}

	reports := make([]report.ImageReport, 0, len(images))

	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		rep, err := r.runOne(ctx, img, i+1, len(images), opts)
		if err != nil {
			r.emit(opts, Progress{ImageIndex: i + 1, TotalImages: len(images), Stage: StageError, Detail: err.Error()})
			return reports, fmt.Errorf("analysis of %s failed: %w", img.Filename, err)
		}
		reports = append(reports, rep)
	}

	r.emit(opts, Progress{ImageIndex: len(images), TotalImages: len(images), Stage: StageDone})
	return reports, nil
}

// runOne executes all stages for a single image.
func (r *Runner) runOne(ctx context.Context, img Image, index, total int, opts Options) (report.ImageReport, error) {
	progress := func(stage Stage) {
		r.emit(opts, Progress{ImageIndex: index, TotalImages: total, Stage: stage, Detail: img.Filename})
	}

	// Upload and style analysis are independent; run them concurrently
	// and join before the search stage, which needs the hosted URL.
	progress(StageUploading)

	type uploadResult struct {
		url string
		err error
	}
	uploadCh := make(chan uploadResult, 1)
	go func() {
		url, err := r.host.Upload(ctx, img.Data)
		uploadCh <- uploadResult{url: url, err: err}
	}()

	progress(StageAnalyzing)
	verdictCh := make(chan risk.StyleVerdict, 1)
	go func() {
		verdictCh <- r.analyzeStyle(ctx, img)
	}()

	upload := <-uploadCh
	verdict := <-verdictCh

	if upload.err != nil {
		// Everything downstream needs the hosted URL; this image
		// cannot proceed and the batch must stop.
		return report.ImageReport{}, fmt.Errorf("upload failed: %w", upload.err)
	}

	progress(StageSearching)
	matches, err := r.searcher.Search(ctx, upload.url)
	if err != nil {
		r.logger.Warn("reverse image search failed, continuing without matches",
			"image", img.Filename, "error", err)
		matches = nil
	}
	if len(matches) > opts.MaxMatches {
		matches = matches[:opts.MaxMatches]
	}

	progress(StagePHash)
	var scores []risk.Score
	if len(matches) > 0 {
		scores = r.scorer.Score(ctx, img.Data, matches)
	}

	return report.Build(img.Filename, matches, verdict, scores, opts.Threshold), nil
}

// analyzeStyle calls the analyzer under the bounded retry policy and
// falls back to the degraded verdict when all attempts fail.
func (r *Runner) analyzeStyle(ctx context.Context, img Image) risk.StyleVerdict {
	mimeType := ai.DetectMIMEType(img.Data)

	verdict, err := withRetry(ctx, styleAnalysisAttempts, func(ctx context.Context) (*risk.StyleVerdict, error) {
		return r.analyzer.AnalyzeStyle(ctx, img.Data, mimeType)
	})
	if err != nil {
		r.logger.Warn("style analysis failed, using degraded verdict",
			"image", img.Filename, "error", err)
		return degradedVerdict
	}

	return *verdict
}

func (r *Runner) emit(opts Options, p Progress) {
	if opts.OnProgress != nil {
		opts.OnProgress(p)
	}
}
