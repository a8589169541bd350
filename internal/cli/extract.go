package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spantap/spantap/internal/capture"
)

var extractCmd = &cobra.Command{
	Use:   "extract <pcap-file>",
	Short: "Extract HTTP transcripts from a packet capture",
	Long: `Extract reassembled HTTP/1.1 transcripts from a pcap or pcapng file.

Each TCP connection becomes one conversation with two transcript files:
conv-NNN.req.http holds the client-to-server bytes and
conv-NNN.res.http the server-to-client bytes. The files feed the parse
and export commands directly.

Examples:
  # Extract transcripts into a directory
  spantap extract capture.pcap -o transcripts/

  # Treat port 3000 as the server side
  spantap extract capture.pcap -o transcripts/ --server-port 3000`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringP("output", "o", "", "output directory (required)")
	extractCmd.Flags().IntSlice("server-port", nil, "TCP ports treated as the server side (default from config)")

	extractCmd.MarkFlagRequired("output")
}

func runExtract(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output")
	serverPorts, _ := cmd.Flags().GetIntSlice("server-port")

	if len(serverPorts) == 0 {
		serverPorts = GetConfig().Capture.ServerPorts
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	conversations, err := capture.ExtractConversations(args[0], capture.ExtractOptions{ServerPorts: serverPorts})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, conv := range conversations {
		base := filepath.Join(outputDir, fmt.Sprintf("conv-%03d", i))

		reqPath := base + ".req.http"
		if err := os.WriteFile(reqPath, conv.Requests, 0644); err != nil {
			return fmt.Errorf("write %s: %w", reqPath, err)
		}
		resPath := base + ".res.http"
		if err := os.WriteFile(resPath, conv.Responses, 0644); err != nil {
			return fmt.Errorf("write %s: %w", resPath, err)
		}

		logger.Printf("conversation %d: %s -> %s", i, conv.Client, conv.Server)
		fmt.Fprintf(out, "conv-%03d %s -> %s (%d request bytes, %d response bytes)\n",
			i, conv.Client, conv.Server, len(conv.Requests), len(conv.Responses))
	}

	fmt.Fprintf(out, "extracted %d conversations to %s\n", len(conversations), outputDir)
	return nil
}
