package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/spantap/spantap/internal/jsonspan"
	"github.com/spantap/spantap/internal/model"
	"github.com/spantap/spantap/internal/protocol"
	"github.com/spantap/spantap/internal/rangeset"
	"github.com/spantap/spantap/internal/span"
	"github.com/spantap/spantap/internal/transcript"
)

var exportCmd = &cobra.Command{
	Use:   "export <transcript-file>",
	Short: "Export span-annotated parse trees",
	Long: `Export the span-annotated parse tree of a transcript to JSON or YAML.

Every element of the tree carries the byte ranges of the transcript
that produced it, so the export can drive selective disclosure or
redaction tooling.

Examples:
  # Export requests to JSON
  spantap export requests.http -o tree.json

  # Export responses to YAML
  spantap export responses.http -d responses -f yaml -o tree.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "output file (required)")
	exportCmd.Flags().StringP("format", "f", "", "output format (json, yaml; default from config)")
	exportCmd.Flags().StringP("direction", "d", "", "transcript direction (requests, responses; default from config)")
	exportCmd.Flags().Bool("pretty", false, "pretty-print JSON output")

	exportCmd.MarkFlagRequired("output")
}

// exportRange is one half-open byte range of the source transcript.
type exportRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// exportDocument is the top-level export payload.
type exportDocument struct {
	Source    string          `json:"source" yaml:"source"`
	Direction string          `json:"direction" yaml:"direction"`
	Messages  []exportMessage `json:"messages" yaml:"messages"`
}

type exportMessage struct {
	Kind    string         `json:"kind" yaml:"kind"`
	Method  string         `json:"method,omitempty" yaml:"method,omitempty"`
	Target  string         `json:"target,omitempty" yaml:"target,omitempty"`
	Code    string         `json:"code,omitempty" yaml:"code,omitempty"`
	Reason  string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Headers []exportHeader `json:"headers" yaml:"headers"`
	Body    *exportBody    `json:"body,omitempty" yaml:"body,omitempty"`
	Span    []exportRange  `json:"span" yaml:"span"`
	WireLen int            `json:"wire_len" yaml:"wire_len"`
}

type exportHeader struct {
	Name  string        `json:"name" yaml:"name"`
	Value string        `json:"value" yaml:"value"`
	Span  []exportRange `json:"span" yaml:"span"`
}

type exportBody struct {
	Kind   string        `json:"kind" yaml:"kind"`
	Length int           `json:"length" yaml:"length"`
	Span   []exportRange `json:"span" yaml:"span"`
	JSON   *exportJSON   `json:"json,omitempty" yaml:"json,omitempty"`
	Chunks []exportChunk `json:"chunks,omitempty" yaml:"chunks,omitempty"`
}

type exportJSON struct {
	Kind     string         `json:"kind" yaml:"kind"`
	Span     []exportRange  `json:"span" yaml:"span"`
	Members  []exportMember `json:"members,omitempty" yaml:"members,omitempty"`
	Elements []*exportJSON  `json:"elements,omitempty" yaml:"elements,omitempty"`
}

type exportMember struct {
	Key     string        `json:"key" yaml:"key"`
	KeySpan []exportRange `json:"key_span" yaml:"key_span"`
	Value   *exportJSON   `json:"value" yaml:"value"`
}

type exportChunk struct {
	Span      []exportRange `json:"span" yaml:"span"`
	Extension string        `json:"extension,omitempty" yaml:"extension,omitempty"`
}

func runExport(cmd *cobra.Command, args []string) error {
	outputFile, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	direction, _ := cmd.Flags().GetString("direction")
	pretty, _ := cmd.Flags().GetBool("pretty")

	direction, err := resolveDirection(direction)
	if err != nil {
		return err
	}

	if format == "" {
		format = GetConfig().Export.DefaultFormat
	}
	format = strings.ToLower(format)
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unsupported format: %s (use json or yaml)", format)
	}
	if !cmd.Flags().Changed("pretty") {
		pretty = GetConfig().Export.PrettyJSON
	}

	file, err := transcript.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	doc := exportDocument{
		Source:    args[0],
		Direction: direction,
		Messages:  []exportMessage{},
	}

	if direction == "requests" {
		it := protocol.NewRequests(file.Bytes())
		for {
			req, err := it.Next()
			if err != nil {
				return fmt.Errorf("parse failed at byte %d: %w", it.Pos(), err)
			}
			if req == nil {
				break
			}
			doc.Messages = append(doc.Messages, buildRequestMessage(req))
		}
	} else {
		it := protocol.NewResponses(file.Bytes())
		for {
			resp, err := it.Next()
			if err != nil {
				return fmt.Errorf("parse failed at byte %d: %w", it.Pos(), err)
			}
			if resp == nil {
				break
			}
			doc.Messages = append(doc.Messages, buildResponseMessage(resp))
		}
	}

	outFile, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer outFile.Close()

	switch format {
	case "json":
		encoder := json.NewEncoder(outFile)
		if pretty {
			encoder.SetIndent("", "  ")
		}
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
	case "yaml":
		encoder := yaml.NewEncoder(outFile)
		if err := encoder.Encode(doc); err != nil {
			return fmt.Errorf("write YAML: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("write YAML: %w", err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "exported %d messages to %s\n", len(doc.Messages), outputFile)
	return nil
}

func buildRequestMessage(req *model.Request) exportMessage {
	return exportMessage{
		Kind:    "request",
		Method:  req.Line.Method.String(),
		Target:  req.Line.Target.String(),
		Headers: buildHeaders(req.Headers),
		Body:    buildBody(req.Body),
		Span:    setRanges(req.Span.Indices()),
		WireLen: req.TotalLen,
	}
}

func buildResponseMessage(resp *model.Response) exportMessage {
	return exportMessage{
		Kind:    "response",
		Code:    resp.Status.Code.String(),
		Reason:  resp.Status.Reason.String(),
		Headers: buildHeaders(resp.Headers),
		Body:    buildBody(resp.Body),
		Span:    setRanges(resp.Span.Indices()),
		WireLen: resp.TotalLen,
	}
}

func buildHeaders(headers []model.Header) []exportHeader {
	out := make([]exportHeader, 0, len(headers))
	for _, h := range headers {
		out = append(out, exportHeader{
			Name:  h.Name.String(),
			Value: string(h.Value.Bytes()),
			Span:  spanRanges(h.Span),
		})
	}
	return out
}

func buildBody(body *model.Body) *exportBody {
	if body == nil {
		return nil
	}

	eb := &exportBody{
		Length: body.Span.Len(),
		Span:   spanRanges(body.Span),
	}

	switch content := body.Content.(type) {
	case *model.JSONBody:
		eb.Kind = "json"
		eb.JSON = buildJSON(content.Value)
	case *model.ChunkedBody:
		eb.Kind = "chunked"
		for _, c := range content.Chunks {
			ec := exportChunk{Span: spanRanges(c.Span)}
			if c.Extension != nil {
				ec.Extension = string(c.Extension.Bytes())
			}
			eb.Chunks = append(eb.Chunks, ec)
		}
	default:
		eb.Kind = "unknown"
	}
	return eb
}

func buildJSON(v *jsonspan.Value) *exportJSON {
	if v == nil {
		return nil
	}

	ej := &exportJSON{
		Kind: v.Kind().String(),
		Span: spanRanges(v.Span()),
	}
	for _, m := range v.Members() {
		ej.Members = append(ej.Members, exportMember{
			Key:     m.Key.String(),
			KeySpan: spanRanges(m.Key),
			Value:   buildJSON(m.Value),
		})
	}
	for _, e := range v.Elements() {
		ej.Elements = append(ej.Elements, buildJSON(e))
	}
	return ej
}

func spanRanges(s span.Span) []exportRange {
	return setRanges(s.Indices())
}

func setRanges(set rangeset.Set) []exportRange {
	out := make([]exportRange, 0, set.NumRanges())
	for _, r := range set.Ranges() {
		out = append(out, exportRange{Start: r.Start, End: r.End})
	}
	return out
}
