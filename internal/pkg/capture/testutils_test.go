package capture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/require"
)

// Common test utilities shared across all test files

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// udpFrame serializes an Ethernet/IPv4/UDP frame around payload. The ports
// avoid well-known ones so gopacket does not decode an application protocol.
func udpFrame(t testing.TB, payload []byte) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       []byte{0x00, 0x0c, 0x29, 0x1f, 0x3c, 0x4e},
		DstMAC:       []byte{0x00, 0x0c, 0x29, 0x1f, 0x3c, 0x4f},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    []byte{192, 168, 1, 100},
		DstIP:    []byte{192, 168, 1, 101},
	}
	udp := &layers.UDP{
		SrcPort: 40000,
		DstPort: 40001,
	}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	return serialize(t, eth, ip, udp, gopacket.Payload(payload))
}

// tcpFrame serializes an Ethernet/IPv4/TCP frame around payload.
func tcpFrame(t testing.TB, payload []byte) []byte {
	t.Helper()

	eth := &layers.Ethernet{
		SrcMAC:       []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       []byte{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    []byte{10, 0, 0, 1},
		DstIP:    []byte{10, 0, 0, 2},
	}
	tcp := &layers.TCP{
		SrcPort: 40002,
		DstPort: 40003,
		Seq:     1000,
		PSH:     true,
		ACK:     true,
		Window:  65535,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	return serialize(t, eth, ip, tcp, gopacket.Payload(payload))
}

func serialize(t testing.TB, l ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, l...))
	return append([]byte(nil), buf.Bytes()...)
}

func captureInfo(i int, frame []byte) gopacket.CaptureInfo {
	return gopacket.CaptureInfo{
		Timestamp:     baseTime.Add(time.Duration(i) * time.Millisecond),
		CaptureLength: len(frame),
		Length:        len(frame),
	}
}

// writePcap writes frames to a classic pcap file in a temp dir.
func writePcap(t testing.TB, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for i, frame := range frames {
		require.NoError(t, w.WritePacket(captureInfo(i, frame), frame))
	}
	return path
}

// writePcapng writes frames to a pcapng file in a temp dir.
func writePcapng(t testing.TB, frames ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.pcapng")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := pcapgo.NewNgWriter(f, layers.LinkTypeEthernet)
	require.NoError(t, err)
	for i, frame := range frames {
		require.NoError(t, w.WritePacket(captureInfo(i, frame), frame))
	}
	require.NoError(t, w.Flush())
	return path
}
