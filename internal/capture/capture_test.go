package capture

import (
	"bytes"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcapgo"
)

func buildTCPPacket(t *testing.T, srcIP, dstIP string, srcPort, dstPort uint16, seq uint32, payload []byte) []byte {
	t.Helper()

	eth := layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP(srcIP),
		DstIP:    net.ParseIP(dstIP),
	}
	tcp := layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		Seq:     seq,
		ACK:     true,
	}
	tcp.SetNetworkLayerForChecksum(&ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, &ip, &tcp, gopacket.Payload(payload)); err != nil {
		t.Fatalf("SerializeLayers failed: %v", err)
	}
	return buf.Bytes()
}

func writePcap(t *testing.T, packets ...[]byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "capture.pcap")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create pcap: %v", err)
	}
	defer f.Close()

	w := pcapgo.NewWriter(f)
	if err := w.WriteFileHeader(65535, layers.LinkTypeEthernet); err != nil {
		t.Fatalf("write pcap header: %v", err)
	}

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, data := range packets {
		ci := gopacket.CaptureInfo{
			Timestamp:     ts.Add(time.Duration(i) * time.Millisecond),
			CaptureLength: len(data),
			Length:        len(data),
		}
		if err := w.WritePacket(ci, data); err != nil {
			t.Fatalf("write packet: %v", err)
		}
	}
	return path
}

func TestExtractConversations(t *testing.T) {
	request := []byte("GET / HTTP/1.1\r\nHost: h\r\n\r\n")
	response := []byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")

	path := writePcap(t,
		buildTCPPacket(t, "192.168.1.10", "192.168.1.20", 12345, 80, 1000, request),
		buildTCPPacket(t, "192.168.1.20", "192.168.1.10", 80, 12345, 2000, response),
	)

	conversations, err := ExtractConversations(path, ExtractOptions{ServerPorts: []int{80}})
	if err != nil {
		t.Fatalf("ExtractConversations: %v", err)
	}
	if len(conversations) != 1 {
		t.Fatalf("conversations = %d, want 1", len(conversations))
	}

	conv := conversations[0]
	if conv.Client != "192.168.1.10:12345" {
		t.Errorf("client = %q, want 192.168.1.10:12345", conv.Client)
	}
	if conv.Server != "192.168.1.20:80" {
		t.Errorf("server = %q, want 192.168.1.20:80", conv.Server)
	}
	if !bytes.Equal(conv.Requests, request) {
		t.Errorf("request transcript = %q, want %q", conv.Requests, request)
	}
	if !bytes.Equal(conv.Responses, response) {
		t.Errorf("response transcript = %q, want %q", conv.Responses, response)
	}
}

// Even when the server's bytes appear first in the capture, the port
// configuration orients the conversation.
func TestExtractConversationsServerFirst(t *testing.T) {
	request := []byte("GET / HTTP/1.1\r\nHost: h\r\n\r\n")
	response := []byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n")

	path := writePcap(t,
		buildTCPPacket(t, "192.168.1.20", "192.168.1.10", 80, 12345, 2000, response),
		buildTCPPacket(t, "192.168.1.10", "192.168.1.20", 12345, 80, 1000, request),
	)

	conversations, err := ExtractConversations(path, ExtractOptions{ServerPorts: []int{80}})
	if err != nil {
		t.Fatalf("ExtractConversations: %v", err)
	}
	if len(conversations) != 1 {
		t.Fatalf("conversations = %d, want 1", len(conversations))
	}

	conv := conversations[0]
	if conv.Client != "192.168.1.10:12345" {
		t.Errorf("client = %q, want 192.168.1.10:12345", conv.Client)
	}
	if !bytes.Equal(conv.Requests, request) {
		t.Errorf("request transcript = %q, want %q", conv.Requests, request)
	}
}

func TestExtractConversationsNoTCP(t *testing.T) {
	path := writePcap(t)

	_, err := ExtractConversations(path, ExtractOptions{})
	if !errors.Is(err, ErrNoTCPStreams) {
		t.Errorf("error = %v, want %v", err, ErrNoTCPStreams)
	}
}

func TestOpenPcapMissingFile(t *testing.T) {
	if _, err := OpenPcap(filepath.Join(t.TempDir(), "missing.pcap")); err == nil {
		t.Error("OpenPcap succeeded on missing file")
	}
}
