package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeTranscript(t *testing.T, name string, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParseCommand(t *testing.T) {
	path := writeTranscript(t, "requests.http",
		"GET /hello HTTP/1.1\r\nHost: example.com\r\n\r\n"+
			"POST /api HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc")

	out, err := executeCommand(t, "parse", path, "-d", "requests")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if !strings.Contains(out, "#1 request GET /hello") {
		t.Errorf("output missing first request summary:\n%s", out)
	}
	if !strings.Contains(out, "#2 request POST /api") {
		t.Errorf("output missing second request summary:\n%s", out)
	}
	if !strings.Contains(out, "2 messages") {
		t.Errorf("output missing message count:\n%s", out)
	}
}

func TestParseCommandResponses(t *testing.T) {
	path := writeTranscript(t, "responses.http",
		"HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")

	out, err := executeCommand(t, "parse", path, "-d", "responses")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !strings.Contains(out, "#1 response 200 OK") {
		t.Errorf("output missing response summary:\n%s", out)
	}
}

func TestParseCommandBadDirection(t *testing.T) {
	path := writeTranscript(t, "requests.http", "GET / HTTP/1.1\r\n\r\n")

	if _, err := executeCommand(t, "parse", path, "-d", "sideways"); err == nil {
		t.Error("parse accepted an unsupported direction")
	}
}

func TestParseCommandReportsOffset(t *testing.T) {
	path := writeTranscript(t, "requests.http",
		"GET / HTTP/1.1\r\nHost: h\r\n\r\n"+"GET /trunc")

	_, err := executeCommand(t, "parse", path, "-d", "requests")
	if err == nil {
		t.Fatal("parse succeeded on truncated transcript")
	}
	if !strings.Contains(err.Error(), "byte 27") {
		t.Errorf("error %q does not name the failing offset", err)
	}
}

func TestExportCommandJSON(t *testing.T) {
	path := writeTranscript(t, "requests.http",
		"POST /api HTTP/1.1\r\n"+
			"Content-Type: application/json\r\n"+
			"Content-Length: 14\r\n"+
			"\r\n"+
			`{"foo": "bar"}`)
	outPath := filepath.Join(t.TempDir(), "tree.json")

	if _, err := executeCommand(t, "export", path, "-d", "requests", "-f", "json", "-o", outPath); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	var doc exportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(doc.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(doc.Messages))
	}

	msg := doc.Messages[0]
	if msg.Kind != "request" || msg.Method != "POST" || msg.Target != "/api" {
		t.Errorf("message = %+v", msg)
	}
	if msg.Body == nil || msg.Body.Kind != "json" {
		t.Fatalf("body = %+v, want json body", msg.Body)
	}
	if len(msg.Body.JSON.Members) != 1 || msg.Body.JSON.Members[0].Key != "foo" {
		t.Errorf("json members = %+v", msg.Body.JSON.Members)
	}
	if len(msg.Span) != 1 || msg.Span[0].Start != 0 {
		t.Errorf("message span = %+v", msg.Span)
	}
}

func TestExportCommandYAML(t *testing.T) {
	path := writeTranscript(t, "responses.http",
		"HTTP/1.1 200 OK\r\n"+
			"Transfer-Encoding: chunked\r\n"+
			"\r\n"+
			"6\r\nHello \r\n6\r\nWorld!\r\n0\r\n\r\n")
	outPath := filepath.Join(t.TempDir(), "tree.yaml")

	if _, err := executeCommand(t, "export", path, "-d", "responses", "-f", "yaml", "-o", outPath); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "kind: response") {
		t.Errorf("yaml missing response kind:\n%s", text)
	}
	if !strings.Contains(text, "kind: chunked") {
		t.Errorf("yaml missing chunked body kind:\n%s", text)
	}
}

func TestExportCommandBadFormat(t *testing.T) {
	path := writeTranscript(t, "requests.http", "GET / HTTP/1.1\r\n\r\n")
	outPath := filepath.Join(t.TempDir(), "tree.xml")

	if _, err := executeCommand(t, "export", path, "-d", "requests", "-f", "xml", "-o", outPath); err == nil {
		t.Error("export accepted an unsupported format")
	}
}

func TestExtractCommandMissingFile(t *testing.T) {
	outDir := t.TempDir()
	if _, err := executeCommand(t, "extract", filepath.Join(outDir, "missing.pcap"), "-o", outDir); err == nil {
		t.Error("extract succeeded on missing capture file")
	}
}

func TestResolveDirectionDefault(t *testing.T) {
	direction, err := resolveDirection("")
	if err != nil {
		t.Fatalf("resolveDirection: %v", err)
	}
	if direction != GetConfig().Parse.DefaultDirection {
		t.Errorf("direction = %q, want config default %q", direction, GetConfig().Parse.DefaultDirection)
	}
}
