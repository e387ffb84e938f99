// Package snapshot persists a substrate's layout manifest and backing
// store so external tooling can inspect or restore a run.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pthm-cable/reef/substrate"
)

// bufferMagic marks a reef buffer dump.
const bufferMagic = "REEF"

// WriteManifest writes the substrate's layout manifest as indented JSON.
func WriteManifest(path string, s *substrate.Substrate) error {
	m, err := s.Manifest()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a layout manifest written by WriteManifest.
func ReadManifest(path string) (substrate.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return substrate.Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}
	var m substrate.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return substrate.Manifest{}, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, nil
}

// WriteBuffer dumps the backing store as little-endian float32 with a
// small shape header.
func WriteBuffer(path string, s *substrate.Substrate) error {
	mem, err := s.Mem()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating buffer file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(bufferMagic); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, dim := range []int32{int32(s.W()), int32(s.H()), int32(s.TotalDepth())} {
		if err := binary.Write(w, binary.LittleEndian, dim); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	var scratch [4]byte
	for _, v := range mem {
		binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
		if _, err := w.Write(scratch[:]); err != nil {
			return fmt.Errorf("writing buffer: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	return nil
}

// ReadBuffer restores a dump into an allocated substrate. The dump's shape
// must match the substrate exactly.
func ReadBuffer(path string, s *substrate.Substrate) error {
	mem, err := s.Mem()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening buffer file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic := make([]byte, len(bufferMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if string(magic) != bufferMagic {
		return fmt.Errorf("not a reef buffer dump: magic %q", magic)
	}

	var w, h, depth int32
	for _, dim := range []*int32{&w, &h, &depth} {
		if err := binary.Read(r, binary.LittleEndian, dim); err != nil {
			return fmt.Errorf("reading header: %w", err)
		}
	}
	if int(w) != s.W() || int(h) != s.H() || int(depth) != s.TotalDepth() {
		return fmt.Errorf("%w: dump is (%d, %d, %d), substrate is (%d, %d, %d)",
			substrate.ErrShapeMismatch, w, h, depth, s.W(), s.H(), s.TotalDepth())
	}

	var scratch [4]byte
	for i := range mem {
		if _, err := io.ReadFull(r, scratch[:]); err != nil {
			return fmt.Errorf("reading buffer: %w", err)
		}
		mem[i] = math.Float32frombits(binary.LittleEndian.Uint32(scratch[:]))
	}
	return nil
}
