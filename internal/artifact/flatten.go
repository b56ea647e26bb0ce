// ============================================================================
// parsecheck - Grammar acceptance driver
// ============================================================================
//
// Package:     artifact
// Description: Newline flattening of tokenizer output
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// Flatten copies r to w replacing every '\n' with a single space and
// appends exactly one trailing '\n'. No other byte is altered. It returns
// the number of newlines replaced.
func Flatten(r io.Reader, w io.Writer) (int, error) {
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)

	buf := make([]byte, 32*1024)
	newlines := 0
	for {
		n, err := br.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			for i, b := range chunk {
				if b == '\n' {
					chunk[i] = ' '
					newlines++
				}
			}
			if _, werr := bw.Write(chunk); werr != nil {
				return newlines, werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return newlines, err
		}
	}

	if err := bw.WriteByte('\n'); err != nil {
		return newlines, err
	}
	return newlines, bw.Flush()
}

// ErrSameFile is returned by FlattenFile when dst names the source file
var ErrSameFile = errors.New("output file is the input file")

// FlattenFile flattens src into dst, creating or truncating dst
func FlattenFile(src, dst string) (int, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	// truncating dst would empty src before it is read
	if srcInfo, err := in.Stat(); err == nil {
		if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(srcInfo, dstInfo) {
			return 0, fmt.Errorf("%s: %w", dst, ErrSameFile)
		}
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}

	n, err := Flatten(in, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", dst, cerr)
	}
	return n, err
}
