package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spantap/spantap/internal/model"
	"github.com/spantap/spantap/internal/protocol"
	"github.com/spantap/spantap/internal/rangeset"
	"github.com/spantap/spantap/internal/transcript"
)

var parseCmd = &cobra.Command{
	Use:   "parse <transcript-file>",
	Short: "Parse a transcript and summarize its messages",
	Long: `Parse an HTTP/1.1 transcript and print one summary line per message,
with the byte ranges each message and its body occupy.

Examples:
  # Parse a request transcript
  spantap parse requests.http

  # Parse a response transcript
  spantap parse responses.http -d responses

  # Stop after the first 10 messages
  spantap parse requests.http -c 10`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringP("direction", "d", "", "transcript direction (requests, responses; default from config)")
	parseCmd.Flags().IntP("count", "c", 0, "maximum messages to parse (0 = all)")
}

func runParse(cmd *cobra.Command, args []string) error {
	direction, _ := cmd.Flags().GetString("direction")
	count, _ := cmd.Flags().GetInt("count")

	direction, err := resolveDirection(direction)
	if err != nil {
		return err
	}
	if count == 0 {
		count = GetConfig().Parse.MaxMessages
	}

	file, err := transcript.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	logger.Printf("parsing %s (%d bytes, %s)", args[0], file.Len(), direction)

	out := cmd.OutOrStdout()
	n := 0
	if direction == "requests" {
		it := protocol.NewRequests(file.Bytes())
		for count == 0 || n < count {
			req, err := it.Next()
			if err != nil {
				return fmt.Errorf("parse failed at byte %d: %w", it.Pos(), err)
			}
			if req == nil {
				break
			}
			n++
			fmt.Fprintf(out, "#%d request %s %s %s\n", n, req.Line.Method, req.Line.Target, messageSummary(req.Span.Indices().Ranges(), req.TotalLen, len(req.Headers), req.Body))
		}
	} else {
		it := protocol.NewResponses(file.Bytes())
		for count == 0 || n < count {
			resp, err := it.Next()
			if err != nil {
				return fmt.Errorf("parse failed at byte %d: %w", it.Pos(), err)
			}
			if resp == nil {
				break
			}
			n++
			fmt.Fprintf(out, "#%d response %s %s %s\n", n, resp.Status.Code, resp.Status.Reason, messageSummary(resp.Span.Indices().Ranges(), resp.TotalLen, len(resp.Headers), resp.Body))
		}
	}

	fmt.Fprintf(out, "%d messages\n", n)
	return nil
}

// resolveDirection validates the direction flag, falling back to the
// configured default when empty.
func resolveDirection(direction string) (string, error) {
	if direction == "" {
		direction = GetConfig().Parse.DefaultDirection
	}
	direction = strings.ToLower(direction)
	if direction != "requests" && direction != "responses" {
		return "", fmt.Errorf("unsupported direction: %s (use requests or responses)", direction)
	}
	return direction, nil
}

// messageSummary formats the shared tail of a summary line.
func messageSummary(ranges []rangeset.Range, totalLen, headers int, body *model.Body) string {
	var b strings.Builder
	b.WriteString("span=")
	for i, r := range ranges {
		if i > 0 {
			b.WriteByte('+')
		}
		fmt.Fprintf(&b, "[%d,%d)", r.Start, r.End)
	}
	fmt.Fprintf(&b, " wire=%d headers=%d", totalLen, headers)
	if body != nil {
		fmt.Fprintf(&b, " body=%d", body.Span.Len())
	}
	return b.String()
}
