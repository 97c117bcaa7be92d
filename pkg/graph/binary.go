package graph

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"

	"street_router/pkg/mapfile"
)

const (
	magicBytes   = "STRTMAP\x00"
	version      = uint32(1)
	maxNodes     = 50_000_000
	maxEdges     = 100_000_000
	maxStringLen = mapfile.MaxIDLen
)

// fileHeader is the uncompressed binary header.
type fileHeader struct {
	Magic    [8]byte
	Version  uint32
	NumNodes uint32
	NumEdges uint32
}

// flag bits per record.
const flagRegistered = 1

// WriteBinary serializes g to a snapshot file: a raw header followed by a
// zstd-compressed body and a CRC32 (IEEE) of the uncompressed body.
// The whole arena is written, including shadowed nodes and edges, so a
// reload yields the same handles and the exact stored edge weights.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	hdr := fileHeader{
		Version:  version,
		NumNodes: uint32(len(g.nodes)),
		NumEdges: uint32(len(g.edges)),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(f, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	bw := bufio.NewWriter(enc)
	crcWriter := crc32Writer{w: bw, hash: crc32.NewIEEE()}
	w := &crcWriter

	for i := range g.nodes {
		n := &g.nodes[i]
		var flags uint8
		if g.nodeIndex[n.ID] == NodeID(i) {
			flags |= flagRegistered
		}
		if err := writeString(w, n.ID); err != nil {
			return fmt.Errorf("write node %d: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, [2]float64{n.Lat, n.Lon}); err != nil {
			return fmt.Errorf("write node %d: %w", i, err)
		}
		if err := binary.Write(w, binary.LittleEndian, flags); err != nil {
			return fmt.Errorf("write node %d: %w", i, err)
		}
	}

	for i := range g.edges {
		e := &g.edges[i]
		var flags uint8
		if g.edgeIndex[e.ID] == EdgeID(i) {
			flags |= flagRegistered
		}
		if err := writeString(w, e.ID); err != nil {
			return fmt.Errorf("write edge %d: %w", i, err)
		}
		rec := struct {
			A, B   uint32
			Weight float64
			Flags  uint8
		}{uint32(e.A), uint32(e.B), e.Weight, flags}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("write edge %d: %w", i, err)
		}
	}

	// CRC32 trailer covers the uncompressed body.
	if err := binary.Write(bw, binary.LittleEndian, crcWriter.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush body: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close zstd writer: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// ReadBinary deserializes a graph snapshot written by WriteBinary.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var hdr fileHeader
	if err := binary.Read(f, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	defer dec.Close()
	br := bufio.NewReader(dec)
	crcReader := crc32Reader{r: br, hash: crc32.NewIEEE()}
	r := &crcReader

	g := New()
	g.nodes = make([]Node, 0, hdr.NumNodes)
	g.edges = make([]Edge, 0, hdr.NumEdges)

	for i := uint32(0); i < hdr.NumNodes; i++ {
		id, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read node %d: %w", i, err)
		}
		var coords [2]float64
		if err := binary.Read(r, binary.LittleEndian, &coords); err != nil {
			return nil, fmt.Errorf("read node %d: %w", i, err)
		}
		var flags uint8
		if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
			return nil, fmt.Errorf("read node %d: %w", i, err)
		}
		g.nodes = append(g.nodes, Node{ID: id, Lat: coords[0], Lon: coords[1]})
		if flags&flagRegistered != 0 {
			g.nodeIndex[id] = NodeID(i)
		}
	}

	for i := uint32(0); i < hdr.NumEdges; i++ {
		id, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read edge %d: %w", i, err)
		}
		var rec struct {
			A, B   uint32
			Weight float64
			Flags  uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("read edge %d: %w", i, err)
		}
		a, b := NodeID(rec.A), NodeID(rec.B)
		if !g.valid(a) || !g.valid(b) {
			return nil, fmt.Errorf("edge %s: endpoints %d-%d: %w", id, a, b, ErrNodeNotFound)
		}
		if rec.Weight < 0 || math.IsNaN(rec.Weight) || math.IsInf(rec.Weight, 0) {
			return nil, fmt.Errorf("edge %s: invalid weight %v", id, rec.Weight)
		}
		prev, had := g.edgeIndex[id]
		g.addEdge(id, a, b, rec.Weight)
		if rec.Flags&flagRegistered == 0 {
			// Shadowed edge: keep whatever the id pointed at before.
			if had {
				g.edgeIndex[id] = prev
			} else {
				delete(g.edgeIndex, id)
			}
		}
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(br, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	return g, nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > maxStringLen {
		return fmt.Errorf("id %.32q... longer than %d bytes", s, maxStringLen)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	if int(n) > maxStringLen {
		return "", fmt.Errorf("id length %d exceeds limit %d", n, maxStringLen)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
