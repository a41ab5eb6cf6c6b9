package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"ethereumIndexer/internal/model"
)

// JsonlReader reads crawler output, one raw transaction per line.
type JsonlReader struct {
	scanner *bufio.Scanner
	line    int
}

func NewJsonlReader(r io.Reader) *JsonlReader {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)
	return &JsonlReader{scanner: scanner}
}

// ReadBatch returns up to size transactions. It returns io.EOF once the input
// is exhausted and no transaction was read.
func (r *JsonlReader) ReadBatch(size int) ([]model.RawTransaction, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}

	batch := make([]model.RawTransaction, 0, size)
	for len(batch) < size && r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var tx model.RawTransaction
		if err := json.Unmarshal(line, &tx); err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		if tx.TxHash == "" {
			return nil, fmt.Errorf("line %d: missing tx_hash", r.line)
		}
		batch = append(batch, tx)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	if len(batch) == 0 {
		return nil, io.EOF
	}
	return batch, nil
}
