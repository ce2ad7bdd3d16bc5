package spreadsheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSV reads a delimited text catalog. The delimiter is detected from the
// header line (comma, semicolon or tab) unless Comma is set.
type CSV struct {
	Path  string
	Comma rune
}

// Name returns the file path.
func (c *CSV) Name() string { return c.Path }

// ReadTable reads every record. A leading UTF-8 BOM is removed.
func (c *CSV) ReadTable() ([]string, [][]string, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if bom, err := br.Peek(3); err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}

	comma := c.Comma
	if comma == 0 {
		line, err := br.Peek(peekSize(br))
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		comma = detectComma(string(line))
	}

	r := csv.NewReader(br)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv row: %w", err)
		}
		rows = append(rows, rec)
	}
	header, data := splitHeader(rows)
	return header, data, nil
}

// peekSize bounds the header sniff to what is buffered.
func peekSize(br *bufio.Reader) int {
	n := br.Buffered()
	if n == 0 {
		// fill the buffer
		br.Peek(1)
		n = br.Buffered()
	}
	return n
}

// detectComma picks the most frequent candidate delimiter on the first line.
func detectComma(sample string) rune {
	if i := strings.IndexAny(sample, "\r\n"); i >= 0 {
		sample = sample[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := strings.Count(sample, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
