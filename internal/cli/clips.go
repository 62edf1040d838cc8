package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"viralcut/internal/clipping"
	clipsv1 "viralcut/internal/contracts/clips/v1"
)

// parseClip reads "id:start:end". The id may itself contain colons.
func parseClip(s string) (clipsv1.Clip, error) {
	last := strings.LastIndex(s, ":")
	if last <= 0 {
		return clipsv1.Clip{}, fmt.Errorf("clip %q: want id:start:end", s)
	}
	mid := strings.LastIndex(s[:last], ":")
	if mid <= 0 {
		return clipsv1.Clip{}, fmt.Errorf("clip %q: want id:start:end", s)
	}

	start, err := strconv.ParseFloat(s[mid+1:last], 64)
	if err != nil {
		return clipsv1.Clip{}, fmt.Errorf("clip %q: bad start: %w", s, err)
	}
	end, err := strconv.ParseFloat(s[last+1:], 64)
	if err != nil {
		return clipsv1.Clip{}, fmt.Errorf("clip %q: bad end: %w", s, err)
	}
	return clipsv1.Clip{ID: s[:mid], StartTime: start, EndTime: end}, nil
}

func parseClips(raw []string) ([]clipsv1.Clip, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one --clip is required")
	}
	out := make([]clipsv1.Clip, 0, len(raw))
	for _, r := range raw {
		c, err := parseClip(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// localSource splits a file path into the directory used as upload dir and
// the name handed to the pipeline. URLs pass through untouched.
func localSource(ref string) (dir, name string, err error) {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return "", ref, nil
	}
	abs, err := filepath.Abs(ref)
	if err != nil {
		return "", "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", "", fmt.Errorf("source %s: %w", ref, err)
	}
	return filepath.Dir(abs), filepath.Base(abs), nil
}

func printClips(w io.Writer, clips []clipsv1.Clip) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tEND\tVIDEO")
	for _, c := range clips {
		fmt.Fprintf(tw, "%s\t%g\t%g\t%s\n", c.ID, c.StartTime, c.EndTime, c.VideoURL)
	}
	tw.Flush()
}

func printBatch(w io.Writer, b clipsv1.Batch) {
	fmt.Fprintf(w, "batch %s: %s\n", b.ID, b.Status)
	if b.Error != "" {
		fmt.Fprintf(w, "error: %s\n", b.Error)
	}
	if len(b.Clips) > 0 {
		printClips(w, b.Clips)
		return
	}
	if len(b.Progress) > 0 {
		ids := make([]string, 0, len(b.Progress))
		for id := range b.Progress {
			ids = append(ids, id)
		}
		slices.SortFunc(ids, clipping.CompareIDs)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CLIP\tSTATE")
		for _, id := range ids {
			fmt.Fprintf(tw, "%s\t%s\n", id, b.Progress[id])
		}
		tw.Flush()
	}
}
