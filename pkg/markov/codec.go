// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package markov

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// =============================================================================
// Artifact Format
// =============================================================================
//
//	magic   "DAGO"            4 bytes, uncompressed
//	version uint16 big endian 2 bytes, uncompressed
//	zstd frame containing:
//	    order        uvarint
//	    labelCount   uvarint
//	    contextCount uvarint
//	    contextCount × {ctx uvarint, n uvarint, n × {symbol byte, count uvarint}}
//	    checksum     xxhash64 of everything above, 8 bytes big endian

const (
	formatVersion uint16 = 1

	// maxArtifactBytes bounds the decompressed body. The largest possible
	// order-10 table is far smaller than this in practice.
	maxArtifactBytes = 1 << 32
)

var magic = [4]byte{'D', 'A', 'G', 'O'}

// Encode writes m to w in the artifact format.
func (m *Model) Encode(w io.Writer) error {
	body := m.appendBody(nil)
	body = binary.BigEndian.AppendUint64(body, xxhash.Sum64(body))

	var header [6]byte
	copy(header[:4], magic[:])
	binary.BigEndian.PutUint16(header[4:], formatVersion)
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write model header: %w", err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := enc.Write(body); err != nil {
		enc.Close()
		return fmt.Errorf("write model body: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush model body: %w", err)
	}
	return nil
}

func (m *Model) appendBody(b []byte) []byte {
	b = binary.AppendUvarint(b, uint64(m.order))
	b = binary.AppendUvarint(b, m.labelCount)
	b = binary.AppendUvarint(b, uint64(len(m.arena)))
	for _, e := range m.arena {
		b = binary.AppendUvarint(b, uint64(e.ctx))
		b = binary.AppendUvarint(b, uint64(e.dist.Len()))
		for i, sym := range e.dist.symbols {
			b = append(b, sym)
			b = binary.AppendUvarint(b, uint64(e.dist.counts[i]))
		}
	}
	return b
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Model) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a model artifact.
//
// # Description
//
// Validates the header, decompresses the body, verifies the checksum and
// every structural invariant (context width, symbol range, positive
// counts, sorted unique successors, root context present). When
// expectOrder is non-zero the model's order must match it.
//
// # Inputs
//
//   - r: Artifact stream
//   - expectOrder: Required order, or 0 to accept any
//
// # Outputs
//
//   - *Model: The reloaded model
//   - error: ErrCorruptModel, ErrUnsupportedVersion or ErrOrderMismatch
//     (wrapped) on failure
func Decode(r io.Reader, expectOrder int) (*Model, error) {
	var header [6]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorruptModel, err)
	}
	if !bytes.Equal(header[:4], magic[:]) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptModel, header[:4])
	}
	if v := binary.BigEndian.Uint16(header[4:]); v != formatVersion {
		return nil, fmt.Errorf("%w: %d (supported: %d)", ErrUnsupportedVersion, v, formatVersion)
	}

	dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	body, err := io.ReadAll(io.LimitReader(dec, maxArtifactBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrCorruptModel, err)
	}
	if len(body) < 8 {
		return nil, fmt.Errorf("%w: truncated body", ErrCorruptModel)
	}
	payload, sum := body[:len(body)-8], binary.BigEndian.Uint64(body[len(body)-8:])
	if xxhash.Sum64(payload) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptModel)
	}

	m, err := parseBody(payload)
	if err != nil {
		return nil, err
	}
	if expectOrder != 0 && m.order != expectOrder {
		return nil, fmt.Errorf("%w: artifact has order %d, want %d", ErrOrderMismatch, m.order, expectOrder)
	}
	return m, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (m *Model) UnmarshalBinary(data []byte) error {
	decoded, err := Decode(bytes.NewReader(data), 0)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

// bodyReader reads uvarints and bytes from the payload, turning every
// short read into ErrCorruptModel.
type bodyReader struct {
	r   *bytes.Reader
	err error
}

func (br *bodyReader) uvarint(what string, limit uint64) uint64 {
	if br.err != nil {
		return 0
	}
	v, err := binary.ReadUvarint(br.r)
	switch {
	case err != nil:
		br.err = fmt.Errorf("%w: read %s: %v", ErrCorruptModel, what, err)
	case v > limit:
		br.err = fmt.Errorf("%w: %s %d exceeds %d", ErrCorruptModel, what, v, limit)
	}
	return v
}

func (br *bodyReader) readByte(what string) byte {
	if br.err != nil {
		return 0
	}
	c, err := br.r.ReadByte()
	if err != nil {
		br.err = fmt.Errorf("%w: read %s: %v", ErrCorruptModel, what, err)
	}
	return c
}

func parseBody(payload []byte) (*Model, error) {
	br := &bodyReader{r: bytes.NewReader(payload)}

	order := int(br.uvarint("order", MaxOrder))
	labelCount := br.uvarint("label count", math.MaxUint64)
	contexts := br.uvarint("context count", uint64(len(payload)))
	if br.err != nil {
		return nil, br.err
	}
	if order < 1 {
		return nil, fmt.Errorf("%w: order %d", ErrCorruptModel, order)
	}

	arena := make([]entry, 0, contexts)
	seen := make(map[Context]struct{}, contexts)
	for range contexts {
		ctx := Context(br.uvarint("context", math.MaxUint64))
		n := int(br.uvarint("successor count", uint64(numSymbols)))
		if br.err != nil {
			return nil, br.err
		}
		if !ctx.valid(order) {
			return nil, fmt.Errorf("%w: invalid context %#x for order %d", ErrCorruptModel, uint64(ctx), order)
		}
		if _, dup := seen[ctx]; dup {
			return nil, fmt.Errorf("%w: duplicate context %q", ErrCorruptModel, ctx.Format(order))
		}
		seen[ctx] = struct{}{}

		symbols := make([]byte, n)
		counts := make([]uint32, n)
		for i := range n {
			symbols[i] = br.readByte("symbol")
			counts[i] = uint32(br.uvarint("count", math.MaxUint32))
			if br.err != nil {
				return nil, br.err
			}
			switch {
			case symbols[i] == symStart || int(symbols[i]) >= numSymbols:
				return nil, fmt.Errorf("%w: invalid successor symbol %d", ErrCorruptModel, symbols[i])
			case counts[i] == 0:
				return nil, fmt.Errorf("%w: zero count in context %q", ErrCorruptModel, ctx.Format(order))
			case i > 0 && symbols[i] <= symbols[i-1]:
				return nil, fmt.Errorf("%w: unsorted successors in context %q", ErrCorruptModel, ctx.Format(order))
			}
		}
		arena = append(arena, entry{ctx: ctx, dist: newDistribution(symbols, counts)})
	}
	if br.r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorruptModel, br.r.Len())
	}
	if _, ok := seen[RootContext]; !ok {
		return nil, fmt.Errorf("%w: missing root context", ErrCorruptModel)
	}
	return newModel(order, labelCount, arena), nil
}

// =============================================================================
// File Helpers
// =============================================================================

// SaveFile writes m to path atomically via a temp file and rename.
func (m *Model) SaveFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create model directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".dago-model-*")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := m.Encode(w); err != nil {
		tmp.Close()
		return err
	}
	if err := errors.Join(w.Flush(), tmp.Sync(), tmp.Close()); err != nil {
		return fmt.Errorf("write model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename model file: %w", err)
	}
	return nil
}

// LoadFile reads a model artifact from path. See Decode for expectOrder.
func LoadFile(path string, expectOrder int) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return Decode(bufio.NewReader(f), expectOrder)
}
