// Package capture extracts HTTP/1.1 transcripts from pcap captures.
//
// A capture is reduced to conversations: one per TCP connection, each
// holding the reassembled client-to-server bytes (the request
// transcript) and server-to-client bytes (the response transcript).
// The transcripts feed the protocol package's iterators directly.
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/tcpassembly"
)

// ErrNoTCPStreams is returned when a capture contains no reassemblable
// TCP payload.
var ErrNoTCPStreams = errors.New("no TCP streams in capture")

// Conversation is one TCP connection reduced to its two directional
// byte transcripts.
type Conversation struct {
	// Client and Server are "ip:port" endpoint strings.
	Client string
	Server string
	// Requests holds the reassembled client-to-server bytes.
	Requests []byte
	// Responses holds the reassembled server-to-client bytes.
	Responses []byte
}

// ExtractOptions configures transcript extraction.
type ExtractOptions struct {
	// ServerPorts orients a conversation: the direction whose
	// destination port is listed is taken as client-to-server. When no
	// direction matches, the first direction seen wins.
	ServerPorts []int
}

// stream accumulates one direction of a TCP connection.
type stream struct {
	net       gopacket.Flow
	transport gopacket.Flow
	order     int
	data      []byte
}

// Reassembled implements tcpassembly.Stream.
func (s *stream) Reassembled(segments []tcpassembly.Reassembly) {
	for _, seg := range segments {
		s.data = append(s.data, seg.Bytes...)
	}
}

// ReassemblyComplete implements tcpassembly.Stream.
func (s *stream) ReassemblyComplete() {}

// streamFactory collects every directional stream the assembler opens.
type streamFactory struct {
	mu      sync.Mutex
	streams []*stream
}

// New implements tcpassembly.StreamFactory.
func (f *streamFactory) New(netFlow, transFlow gopacket.Flow) tcpassembly.Stream {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := &stream{net: netFlow, transport: transFlow, order: len(f.streams)}
	f.streams = append(f.streams, s)
	return s
}

// ExtractConversations reads a pcap or pcapng file and reassembles
// every TCP connection into a Conversation.
func ExtractConversations(path string, opts ExtractOptions) ([]*Conversation, error) {
	reader, err := OpenPcap(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	factory := &streamFactory{}
	pool := tcpassembly.NewStreamPool(factory)
	assembler := tcpassembly.NewAssembler(pool)

	for {
		ci, data, err := reader.ReadPacket()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read packet: %w", err)
		}

		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Default)
		tcpLayer := packet.Layer(layers.LayerTypeTCP)
		if tcpLayer == nil {
			continue
		}
		networkLayer := packet.NetworkLayer()
		if networkLayer == nil {
			continue
		}
		assembler.AssembleWithTimestamp(networkLayer.NetworkFlow(), tcpLayer.(*layers.TCP), ci.Timestamp)
	}
	assembler.FlushAll()

	conversations := pairStreams(factory.streams, opts.ServerPorts)
	if len(conversations) == 0 {
		return nil, ErrNoTCPStreams
	}
	return conversations, nil
}

// pairStreams matches each directional stream with its reverse and
// orients the pair into client and server sides.
func pairStreams(streams []*stream, serverPorts []int) []*Conversation {
	type connKey struct {
		net       uint64
		transport uint64
	}

	// FastHash is direction-insensitive, so both directions of one
	// connection land on the same key.
	byConn := make(map[connKey][]*stream)
	var order []connKey
	for _, s := range streams {
		if len(s.data) == 0 {
			continue
		}
		key := connKey{net: s.net.FastHash(), transport: s.transport.FastHash()}
		if _, seen := byConn[key]; !seen {
			order = append(order, key)
		}
		byConn[key] = append(byConn[key], s)
	}

	var conversations []*Conversation
	for _, key := range order {
		pair := byConn[key]

		client := pair[0]
		var server *stream
		if len(pair) > 1 {
			server = pair[1]
		}
		if server != nil && !isServerBound(client, serverPorts) && isServerBound(server, serverPorts) {
			client, server = server, client
		}

		conv := &Conversation{
			Client:   endpoint(client.net.Src(), client.transport.Src()),
			Server:   endpoint(client.net.Dst(), client.transport.Dst()),
			Requests: client.data,
		}
		if server != nil {
			conv.Responses = server.data
		}
		conversations = append(conversations, conv)
	}
	return conversations
}

// isServerBound reports whether the stream's destination port is one of
// the configured server ports.
func isServerBound(s *stream, serverPorts []int) bool {
	dst := s.transport.Dst().String()
	for _, p := range serverPorts {
		if dst == fmt.Sprintf("%d", p) {
			return true
		}
	}
	return false
}

func endpoint(ip, port gopacket.Endpoint) string {
	return ip.String() + ":" + port.String()
}
