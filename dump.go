// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import (
	"bufio"
	"encoding/gob"
	"errors"
	"io"

	"github.com/klauspost/pgzip"
	"golang.org/x/crypto/blake2b"
)

// GraphRecord is the serialized form of one window's graph.
type GraphRecord struct {
	BatchID int
	Window  int
	Digest  [blake2b.Size256]byte
	Labels  []byte
	Edges   []GraphEdge
}

type GraphEdge struct {
	From, To int
	Weight   int32
}

// GraphRecords returns one record per window of an executed batch.
func (b *Batch) GraphRecords() ([]GraphRecord, error) {
	if b.state != stateExecuted {
		return nil, b.stateError("graph records")
	}
	recs := make([]GraphRecord, b.filled)
	for i, s := range b.slots[:b.filled] {
		rec := GraphRecord{
			BatchID: b.id,
			Window:  i,
			Digest:  s.digest,
			Labels:  make([]byte, s.graph.Len()),
			Edges:   make([]GraphEdge, 0, s.graph.Edges()),
		}
		for id := range rec.Labels {
			rec.Labels[id] = s.graph.Base(id)
		}
		s.graph.EachEdge(func(from, to int, weight int32) {
			rec.Edges = append(rec.Edges, GraphEdge{From: from, To: to, Weight: weight})
		})
		recs[i] = rec
	}
	return recs, nil
}

// WriteGraphs writes recs to w as a gob stream, gzip-compressed if gz
// is true.
func WriteGraphs(w io.Writer, recs []GraphRecord, gz bool) error {
	bufw := bufio.NewWriterSize(w, 1<<20)
	var out io.Writer = bufw
	var gzw *pgzip.Writer
	if gz {
		gzw = pgzip.NewWriter(bufw)
		out = gzw
	}
	enc := gob.NewEncoder(out)
	for i := range recs {
		if err := enc.Encode(&recs[i]); err != nil {
			return err
		}
	}
	if gzw != nil {
		if err := gzw.Close(); err != nil {
			return err
		}
	}
	return bufw.Flush()
}

// ReadGraphs decodes a stream written by WriteGraphs, calling visit on
// each record in order.
func ReadGraphs(r io.Reader, gz bool, visit func(*GraphRecord) error) error {
	rdr := io.Reader(bufio.NewReaderSize(r, 1<<20))
	if gz {
		gzr, err := pgzip.NewReader(rdr)
		if err != nil {
			return err
		}
		defer gzr.Close()
		rdr = gzr
	}
	dec := gob.NewDecoder(rdr)
	for {
		var rec GraphRecord
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return err
		}
		if err := visit(&rec); err != nil {
			return err
		}
	}
}
