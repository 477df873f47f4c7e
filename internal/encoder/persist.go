package encoder

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/rhodf/closure/pkg/triple"
)

// Persist writes one (s_id,p_id,o_id) triple per line to path. When
// gzipCompress is true the file is gzip-compressed. The format is
// otherwise plain: only the triple identity needs to round-trip.
func Persist(path string, triples []triple.EncodedTriple, gzipCompress bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if gzipCompress {
		gz = gzip.NewWriter(f)
		w = gz
	}

	bw := bufio.NewWriter(w)
	for _, t := range triples {
		if _, err := bw.WriteString(FormatPersisted(t)); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a file previously written by Persist, bypassing the parser
// and dictionary entirely — the intended fast path for re-runs over the
// same dataset. gzipCompress must match the value Persist was called
// with.
func Load(path string, gzipCompress bool) ([]triple.EncodedTriple, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if gzipCompress {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	var out []triple.EncodedTriple
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		t, err := ParsePersisted(line)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
