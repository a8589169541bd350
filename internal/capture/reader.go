package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
	"github.com/gopacket/gopacket/pcap"
	"github.com/gopacket/gopacket/pcapgo"
)

// ErrInvalidPcapFile is returned when a capture file cannot be opened
// by any supported reader.
var ErrInvalidPcapFile = errors.New("invalid pcap file")

// PcapReader reads raw packets from pcap and pcapng files.
type PcapReader struct {
	path       string
	file       *os.File
	handle     *pcap.Handle
	ngReader   *pcapgo.NgReader
	pcapReader *pcapgo.Reader
	linkType   layers.LinkType
}

// OpenPcap opens a pcap or pcapng file for reading. The format is
// chosen by extension, with a libpcap fallback for legacy files pcapgo
// cannot read.
func OpenPcap(path string) (*PcapReader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat capture file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidPcapFile, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture file: %w", err)
	}

	reader := &PcapReader{path: path, file: file}

	if strings.ToLower(filepath.Ext(path)) == ".pcapng" {
		ngReader, err := pcapgo.NewNgReader(file, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("%w: %v", ErrInvalidPcapFile, err)
		}
		reader.ngReader = ngReader
		reader.linkType = ngReader.LinkType()
		return reader, nil
	}

	pcapReader, err := pcapgo.NewReader(file)
	if err != nil {
		file.Close()
		reader.file = nil
		handle, err := pcap.OpenOffline(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPcapFile, err)
		}
		reader.handle = handle
		reader.linkType = handle.LinkType()
		return reader, nil
	}
	reader.pcapReader = pcapReader
	reader.linkType = pcapReader.LinkType()
	return reader, nil
}

// LinkType returns the link type of the capture.
func (r *PcapReader) LinkType() layers.LinkType {
	return r.linkType
}

// Path returns the file path.
func (r *PcapReader) Path() string {
	return r.path
}

// ReadPacket reads the next packet from the file.
func (r *PcapReader) ReadPacket() (gopacket.CaptureInfo, []byte, error) {
	switch {
	case r.ngReader != nil:
		data, ci, err := r.ngReader.ReadPacketData()
		return ci, data, err
	case r.pcapReader != nil:
		data, ci, err := r.pcapReader.ReadPacketData()
		return ci, data, err
	case r.handle != nil:
		data, ci, err := r.handle.ReadPacketData()
		return ci, data, err
	}
	return gopacket.CaptureInfo{}, nil, errors.New("no reader available")
}

// Close closes the reader.
func (r *PcapReader) Close() error {
	if r.handle != nil {
		r.handle.Close()
	}
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}
