// Package cli provides output formatting and progress reporting for the lens CLI.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/hyperjump/lens/internal/analytics"
	"github.com/hyperjump/lens/internal/fileid"
	"github.com/hyperjump/lens/internal/models"
	"github.com/hyperjump/lens/internal/retrieval"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// WriteRetrieval writes query results to w in the given format.
func WriteRetrieval(w io.Writer, response *models.RetrievalResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, response)
	}
	if response.Empty() {
		fmt.Fprintf(w, "\nNo results in %q (%dms)\n", response.Collection, response.QueryTime)
		return nil
	}
	fmt.Fprintf(w, "\nFound %d results in %q in %dms\n\n", len(response.Results), response.Collection, response.QueryTime)
	for i, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		source := r.SourceID
		if kind := fileid.Kind(r.SourceID); kind != "" {
			source = kind + " " + source
		}
		fmt.Fprintf(w, "#%d  distance %.4f  %s [%d/%d]\n", i+1, r.Distance, source, r.ChunkIndex, r.TotalChunks)
		fmt.Fprintf(w, "\n%s\n\n", retrieval.Snippet(r.Text, 300))
	}
	if response.Skipped > 0 {
		fmt.Fprintf(w, "(%d results could not be resolved)\n", response.Skipped)
	}
	return nil
}

// WriteIndexReport writes the outcome of an indexing run.
func WriteIndexReport(w io.Writer, r *models.IndexReport, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, r)
	}
	fmt.Fprintf(w, "Collection %q: %d processed, %d skipped, %d failed\n", r.Collection, r.Processed, r.Skipped, r.Failed)
	fmt.Fprintf(w, "Chunks: %d indexed, %d dropped; %d vectors total (%s)\n",
		r.ChunksIndexed, r.ChunksDropped, r.TotalVectors, r.Duration.Round(1e6))
	return nil
}

// WriteReport writes a label report.
func WriteReport(w io.Writer, report *analytics.Report, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, report)
	}
	fmt.Fprintf(w, "Label report over %d documents\n", report.Documents)
	if len(report.Fields) == 0 {
		fmt.Fprintln(w, "No label fields found.")
		return nil
	}
	for _, f := range report.Fields {
		fmt.Fprintf(w, "\n== %s (%d labels, %s similarity) ==\n", f.Field, f.Labels, f.Metric)
		writeCounts(w, "Top labels", f.TopLabels)
		writeCounts(w, "Underserved", f.Underserved)
		writePairs(w, "Most similar", f.SimilarPairs)
		writePairs(w, "Gaps", f.GapPairs)
	}
	return nil
}

func writeCounts(w io.Writer, title string, counts []analytics.LabelCount) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, c := range counts {
		fmt.Fprintf(w, "  %-30s %d\n", c.Label, c.Count)
	}
}

func writePairs(w io.Writer, title string, pairs []analytics.LabelPair) {
	if len(pairs) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, p := range pairs {
		fmt.Fprintf(w, "  %s / %s  %.3f\n", p.A, p.B, p.Similarity)
	}
}
