package sparse

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"math/cmplx"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	FnameShape = "shape.csv"
	FnameCOO   = "coo.csv"
)

// WriteCOO writes m into dir as a shape file and a coordinate list file, readable by numpy and scipy.
// A value or row equal to that of the previous entry is left empty.
func (m *CSR) WriteCOO(dir string) error {
	shape := fmt.Sprintf("%d,%d\n", m.rows, m.cols)
	if err := os.WriteFile(filepath.Join(dir, FnameShape), []byte(shape), 0644); err != nil {
		return errors.Wrap(err, "")
	}

	f, err := os.Create(filepath.Join(dir, FnameCOO))
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := writeTriplets(f, m.Triplets()); err != nil {
		f.Close()
		return errors.Wrap(err, "")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func writeTriplets(f io.Writer, ts iter.Seq[Triplet]) error {
	w := csv.NewWriter(f)
	last := Triplet{V: cmplx.NaN(), Row: -1}
	for t := range ts {
		record := []string{"", "", strconv.Itoa(t.Col)}
		if t.V != last.V {
			record[0] = FormatNumpy(t.V)
		}
		if t.Row != last.Row {
			record[1] = strconv.Itoa(t.Row)
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%#v", t))
		}
		last = t
	}
	w.Flush()
	return w.Error()
}

// ReadCOO reads a matrix written by WriteCOO.
func ReadCOO(dir string) (*CSR, error) {
	b, err := os.ReadFile(filepath.Join(dir, FnameShape))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	var rows, cols int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(b)), "%d,%d", &rows, &cols); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%q", b))
	}

	f, err := os.Open(filepath.Join(dir, FnameCOO))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer f.Close()

	ts := make([]Triplet, 0)
	for t, err := range readTriplets(f) {
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
			return nil, errors.Errorf("%#v outside %dx%d", t, rows, cols)
		}
		ts = append(ts, t)
	}
	return FromTriplets(rows, cols, ts), nil
}

// readTriplets yields the entries of a coordinate list file, stopping at the first error.
func readTriplets(f io.Reader) iter.Seq2[Triplet, error] {
	return func(yield func(Triplet, error) bool) {
		r := csv.NewReader(f)
		r.FieldsPerRecord = 3
		var last Triplet
		for line := 1; ; line++ {
			record, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Triplet{}, errors.Wrap(err, ""))
				return
			}
			t, err := parseRecord(record, last)
			if err != nil {
				yield(Triplet{}, errors.Wrap(err, fmt.Sprintf("line %d", line)))
				return
			}
			if !yield(t, nil) {
				return
			}
			last = t
		}
	}
}

func parseRecord(record []string, last Triplet) (Triplet, error) {
	t := last
	var err error
	if record[0] != "" {
		t.V, err = strconv.ParseComplex(strings.ReplaceAll(record[0], "j", "i"), 128)
		if err != nil {
			return Triplet{}, errors.Wrap(err, record[0])
		}
	}
	if record[1] != "" {
		t.Row, err = strconv.Atoi(record[1])
		if err != nil {
			return Triplet{}, errors.Wrap(err, record[1])
		}
	}
	t.Col, err = strconv.Atoi(record[2])
	if err != nil {
		return Triplet{}, errors.Wrap(err, record[2])
	}
	return t, nil
}

// FormatNumpy formats v so that numpy can parse it.
func FormatNumpy(v complex128) string {
	if imag(v) == 0 {
		return strconv.FormatFloat(real(v), 'g', -1, 64)
	}
	s := strconv.FormatComplex(v, 'g', -1, 128)
	return strings.ReplaceAll(strings.Trim(s, "()"), "i", "j")
}
