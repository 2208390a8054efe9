// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	applog "visualiser/internal/log"
	"visualiser/internal/scene"
)

// Mesh kind codes used on the wire.
const (
	KindSphere uint8 = 1
	KindLine   uint8 = 2
)

// UDPPublisher keeps the most recent scene snapshot and sends its geometry
// over UDP at a fixed interval. Render only swaps a pointer, so the tick
// goroutine never waits on the network.
type UDPPublisher struct {
	sender   *UDPSender
	interval time.Duration

	latest    atomic.Pointer[scene.Snapshot]
	lastFrame uint64
	sentAny   bool

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // Protects ticker and doneChan during Start/Stop.

	sequenceNum  uint32
	packetBuffer *bytes.Buffer // Reused for every packet.
}

// NewUDPPublisher creates a publisher over sender.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	applog.Infof("UDPPublisher: Initializing (Interval: %s, Target: %s)", interval, sender.Target())

	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Render records snap as the next snapshot to publish.
func (p *UDPPublisher) Render(snap scene.Snapshot) error {
	p.latest.Store(&snap)
	return nil
}

// Start begins the periodic publishing process.
// Subsequent calls are no-ops while running.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publishLatest()
			case <-doneChan:
				applog.Infof("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		applog.Infof("UDPPublisher: Initiating stop sequence...")
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Frame             | uint64         | 8            | Scheduler tick number   |
| Bass Amplitude    | float32        | 4            | Mapped bass             |
| Treble Amplitude  | float32        | 4            | Mapped treble           |
| Paused            | uint8          | 1            | 1 when playback paused  |
| Mesh Count        | uint8          | 1            | Number of meshes (M)    |
| Meshes            | M * mesh block | variable     | See below               |
+-----------------------------------------------------------------------------+

Mesh block:

|<- 1 Byte ->|<-- 2 Bytes -->|<------- V * 12 Bytes ------->|
+------------+---------------+------------------------------+
|    Kind    |  Vertex Count |   Positions (V * 3 float32)  |
|   (uint8)  |    (uint16)   |          x, y, z             |
+------------+---------------+------------------------------+
*/

// Packet is the decoded form of one datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Frame     uint64
	Bass      float32
	Treble    float32
	Paused    bool
	Meshes    []PacketMesh
}

// PacketMesh is one mesh block of a Packet.
type PacketMesh struct {
	Kind      uint8
	Positions []float32
}

type packetHeader struct {
	Sequence  uint32
	Timestamp int64
	Frame     uint64
	Bass      float32
	Treble    float32
	Paused    uint8
	MeshCount uint8
}

type meshHeader struct {
	Kind        uint8
	VertexCount uint16
}

func kindCode(k scene.Kind) uint8 {
	if k == scene.KindSphere {
		return KindSphere
	}
	return KindLine
}

// EncodePacket appends the wire form of snap to buf.
func EncodePacket(buf *bytes.Buffer, seq uint32, timestamp int64, snap *scene.Snapshot) error {
	if len(snap.Meshes) > 255 {
		return fmt.Errorf("too many meshes for one packet: %d", len(snap.Meshes))
	}
	hdr := packetHeader{
		Sequence:  seq,
		Timestamp: timestamp,
		Frame:     snap.Frame,
		Bass:      float32(snap.Amplitudes.Bass),
		Treble:    float32(snap.Amplitudes.Treble),
		MeshCount: uint8(len(snap.Meshes)),
	}
	if snap.Paused {
		hdr.Paused = 1
	}
	if err := binary.Write(buf, binary.BigEndian, hdr); err != nil {
		return err
	}
	for _, m := range snap.Meshes {
		vertices := len(m.Positions) / 3
		if vertices > 0xFFFF {
			return fmt.Errorf("mesh %q has too many vertices: %d", m.Name, vertices)
		}
		mh := meshHeader{Kind: kindCode(m.Kind), VertexCount: uint16(vertices)}
		if err := binary.Write(buf, binary.BigEndian, mh); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.BigEndian, m.Positions[:3*vertices]); err != nil {
			return err
		}
	}
	return nil
}

// DecodePacket parses one datagram produced by EncodePacket.
func DecodePacket(data []byte) (Packet, error) {
	r := bytes.NewReader(data)
	var hdr packetHeader
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return Packet{}, fmt.Errorf("reading packet header: %w", err)
	}
	pkt := Packet{
		Sequence:  hdr.Sequence,
		Timestamp: hdr.Timestamp,
		Frame:     hdr.Frame,
		Bass:      hdr.Bass,
		Treble:    hdr.Treble,
		Paused:    hdr.Paused == 1,
		Meshes:    make([]PacketMesh, hdr.MeshCount),
	}
	for i := range pkt.Meshes {
		var mh meshHeader
		if err := binary.Read(r, binary.BigEndian, &mh); err != nil {
			return Packet{}, fmt.Errorf("reading mesh %d header: %w", i, err)
		}
		pos := make([]float32, 3*int(mh.VertexCount))
		if err := binary.Read(r, binary.BigEndian, pos); err != nil {
			return Packet{}, fmt.Errorf("reading mesh %d positions: %w", i, err)
		}
		pkt.Meshes[i] = PacketMesh{Kind: mh.Kind, Positions: pos}
	}
	if r.Len() != 0 {
		return Packet{}, fmt.Errorf("%d trailing bytes: %w", r.Len(), io.ErrUnexpectedEOF)
	}
	return pkt, nil
}

// publishLatest sends the most recent snapshot unless it was already sent.
func (p *UDPPublisher) publishLatest() {
	snap := p.latest.Load()
	if snap == nil {
		return
	}
	if p.sentAny && snap.Frame == p.lastFrame {
		return
	}

	p.sequenceNum++
	p.packetBuffer.Reset()
	if err := EncodePacket(p.packetBuffer, p.sequenceNum, time.Now().UnixNano(), snap); err != nil {
		applog.Errorf("UDPPublisher: Error packing frame %d: %v", snap.Frame, err)
		return
	}

	// Sender logs its own failures.
	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
	p.lastFrame = snap.Frame
	p.sentAny = true
}

// Close stops the publisher goroutine. The sender is owned by the caller.
func (p *UDPPublisher) Close() error {
	applog.Debugf("UDPPublisher: Close called, stopping publisher...")
	return p.Stop()
}

var _ scene.Renderer = (*UDPPublisher)(nil)
