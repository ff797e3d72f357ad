package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/floworx/floworx-core/internal/model"
)

func correctionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corrections",
		Short: "Record and analyze classification corrections",
	}

	cmd.AddCommand(correctionsRecordCmd())
	cmd.AddCommand(correctionsStatsCmd())
	cmd.AddCommand(correctionsExportCmd())

	return cmd
}

func correctionsRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a human correction of an AI classification",
		Long: `Record that the AI filed an email under the wrong categories. The
correction feeds few-shot examples into future classifier prompts and the
training export.

Example:
  floworx corrections record -t hailey \
    --subject "Re: hot tub cover" \
    --original SALES --corrected SUPPORT/warranty \
    --rating 4 --reason "warranty claim, not a sale"`,
		RunE: runCorrectionsRecord,
	}

	cmd.Flags().String("subject", "", "subject of the misclassified email")
	cmd.Flags().String("original", "", "original categories as primary[/secondary[/tertiary]]")
	cmd.Flags().String("corrected", "", "corrected categories as primary[/secondary[/tertiary]]")
	cmd.Flags().Float64("original-confidence", 0, "confidence the AI reported for the original answer")
	cmd.Flags().IntP("rating", "r", 3, "correction quality rating, 1 (uncertain) to 5 (definitive)")
	cmd.Flags().String("reason", "", "why the original classification was wrong")
	_ = cmd.MarkFlagRequired("original")
	_ = cmd.MarkFlagRequired("corrected")

	return cmd
}

func runCorrectionsRecord(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	tenantID, err := requireTenant()
	if err != nil {
		return err
	}

	eng, cleanup, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	original := parseCategoryPath(mustFlag(cmd, "original"))
	original.Confidence, _ = cmd.Flags().GetFloat64("original-confidence")
	corrected := parseCategoryPath(mustFlag(cmd, "corrected"))
	rating, _ := cmd.Flags().GetInt("rating")

	correction, err := eng.RecordCorrection(ctx, tenantID,
		mustFlag(cmd, "subject"), original, corrected, rating, mustFlag(cmd, "reason"))
	if err != nil {
		return err
	}

	fmt.Printf("recorded correction %s\n", correction.ID)
	return nil
}

func correctionsStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show classification accuracy over a recent window",
		RunE:  runCorrectionsStats,
	}
	cmd.Flags().IntP("days", "d", 30, "window size in days")
	return cmd
}

func runCorrectionsStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	tenantID, err := requireTenant()
	if err != nil {
		return err
	}

	eng, cleanup, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	days, _ := cmd.Flags().GetInt("days")
	since := time.Now().UTC().AddDate(0, 0, -days)

	metrics, err := eng.AccuracyMetrics(ctx, tenantID, since)
	if err != nil {
		return err
	}

	fmt.Printf("corrections over last %d day(s): %d\n", days, metrics.TotalCorrections)
	fmt.Printf("correction rate: %.1f%%\n", metrics.CorrectionRate*100)
	if metrics.AvgOriginalConfidence != nil {
		fmt.Printf("avg confidence of wrong answers: %.2f\n", *metrics.AvgOriginalConfidence)
	} else {
		fmt.Println("avg confidence of wrong answers: n/a (no corrections)")
	}
	fmt.Printf("high-confidence errors: %d\n", metrics.HighConfidenceErrorCount)
	return nil
}

func correctionsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export corrections as fine-tuning examples (JSONL)",
		RunE:  runCorrectionsExport,
	}
	cmd.Flags().IntP("min-quality", "q", 3, "minimum confidence rating to include")
	cmd.Flags().StringP("output", "o", "-", "output file (- for stdout)")
	return cmd
}

func runCorrectionsExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	tenantID, err := requireTenant()
	if err != nil {
		return err
	}

	eng, cleanup, err := initEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	toStdout := true
	out := os.Stdout
	if path := mustFlag(cmd, "output"); path != "-" {
		toStdout = false
		f, createErr := os.Create(path) // #nosec G304 -- user-chosen output path
		if createErr != nil {
			return fmt.Errorf("failed to create output file: %w", createErr)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	minQuality, _ := cmd.Flags().GetInt("min-quality")
	exporter := eng.ExportTrainingExamples(tenantID, minQuality)
	encoder := json.NewEncoder(out)

	// Keep the bar off stdout so it never interleaves with the JSONL stream.
	bar := progressbar.DefaultSilent(-1)
	if !toStdout {
		bar = progressbar.Default(-1, "exporting corrections")
	}

	total := 0
	for {
		page, pageErr := exporter.Next(ctx)
		if pageErr != nil {
			return pageErr
		}
		if len(page) == 0 {
			break
		}
		for _, example := range page {
			if encErr := encoder.Encode(example); encErr != nil {
				return encErr
			}
		}
		total += len(page)
		_ = bar.Add(len(page))
	}
	_ = bar.Finish()

	fmt.Fprintf(os.Stderr, "exported %d example(s)\n", total)
	return nil
}

// parseCategoryPath splits "primary/secondary/tertiary" into a result.
func parseCategoryPath(path string) model.ClassificationResult {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	var result model.ClassificationResult
	if len(parts) > 0 {
		result.PrimaryCategory = parts[0]
	}
	if len(parts) > 1 {
		result.SecondaryCategory = parts[1]
	}
	if len(parts) > 2 {
		result.TertiaryCategory = parts[2]
	}
	return result
}
