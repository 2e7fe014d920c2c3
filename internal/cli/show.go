package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/cuetrack/internal/subtitle"
)

var showCmd = &cobra.Command{
	Use:   "show [media_or_subtitle]",
	Short: "Print the cues of the caption track for a media file",
	Long: `Resolve the caption track for a media file (or read a caption file
directly) and print its cues.

With --at, only the cue on screen at each given time is printed. With
--from/--to, the cues overlapping that window are printed.

Examples:
  cuetrack show movie.mkv
  cuetrack show movie.mkv -l es --at 12.5 --at 60
  cuetrack show episode.en.vtt --from 30 --to 90`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().
		Float64Slice("at", nil, "Print the active cue at these times in seconds")
	showCmd.Flags().
		Float64("from", -1, "Start of the window in seconds")
	showCmd.Flags().
		Float64("to", -1, "End of the window in seconds")
}

func runShow(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx := context.Background()

	at, _ := cmd.Flags().GetFloat64Slice("at")
	from, _ := cmd.Flags().GetFloat64("from")
	to, _ := cmd.Flags().GetFloat64("to")
	language, _ := cmd.Flags().GetString("language")

	l, closeLoader, err := newLoader()
	if err != nil {
		return err
	}
	defer closeLoader()

	track, err := l.Load(ctx, source, language)
	if err != nil {
		return fmt.Errorf("failed to load track: %w", err)
	}

	logger.Infow("Loaded track",
		"source", source,
		"language", track.Language(),
		"format", track.Format(),
		"cues", track.Len(),
	)

	if track.IsEmpty() {
		fmt.Fprintf(cmd.OutOrStdout(), "No captions found for %s\n", source)
		return nil
	}

	out := cmd.OutOrStdout()
	switch {
	case len(at) > 0:
		for _, t := range at {
			cue, ok := track.ActiveCueAt(t)
			if !ok {
				fmt.Fprintf(out, "%s  -\n", subtitle.FormatTimestamp(t, subtitle.FormatVTT))
				continue
			}
			fmt.Fprintf(out, "%s  %s\n",
				subtitle.FormatTimestamp(t, subtitle.FormatVTT),
				strings.ReplaceAll(cue.Text, "\n", " / "),
			)
		}
	case from >= 0 || to >= 0:
		if from < 0 {
			from = 0
		}
		if to < 0 {
			to = track.Duration()
		}
		if to < from {
			return fmt.Errorf("--to (%v) is before --from (%v)", to, from)
		}
		printCues(out, track.CuesBetween(from, to))
	default:
		printCues(out, track.Cues())
	}

	return nil
}

// one cue per line: "start --> end  text", line breaks shown as " / "
func printCues(w io.Writer, cues []subtitle.Cue) {
	for _, c := range cues {
		fmt.Fprintf(w, "%s --> %s  %s\n",
			subtitle.FormatTimestamp(c.Start, subtitle.FormatVTT),
			subtitle.FormatTimestamp(c.End, subtitle.FormatVTT),
			strings.ReplaceAll(c.Text, "\n", " / "),
		)
	}
}
