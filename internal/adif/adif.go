// Package adif reads WSJT-X ADIF logs.
package adif

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMalformed is wrapped by every parse error
var ErrMalformed = errors.New("malformed ADIF")

// Record is one QSO keyed by upper-case field name
type Record map[string]string

// Get returns the value of a field, ignoring case
func (r Record) Get(name string) string {
	return r[strings.ToUpper(name)]
}

// Call returns the upper-cased CALL field
func (r Record) Call() string {
	return strings.ToUpper(strings.TrimSpace(r.Get("CALL")))
}

// Parse reads records from r. A header is present when the data does not
// start with a tag, and ends at <EOH>. Fields after the last <EOR> belong to
// a record still being written and are dropped.
func Parse(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	p := &parser{
		data:     data,
		inHeader: len(trimmed) > 0 && trimmed[0] != '<',
	}

	return p.parse()
}

// ParseFile parses the log at path
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return records, nil
}

type parser struct {
	data     []byte
	pos      int
	inHeader bool
}

func (p *parser) parse() ([]Record, error) {
	var records []Record
	current := Record{}

	for {
		start := bytes.IndexByte(p.data[p.pos:], '<')
		if start < 0 {
			return records, nil
		}
		start += p.pos

		end := bytes.IndexByte(p.data[start:], '>')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated tag at offset %d", ErrMalformed, start)
		}
		end += start

		tag := string(p.data[start+1 : end])
		p.pos = end + 1

		switch strings.ToLower(tag) {
		case "eoh":
			p.inHeader = false
			current = Record{}
			continue
		case "eor":
			if !p.inHeader && len(current) > 0 {
				records = append(records, current)
			}
			current = Record{}
			continue
		}

		name, length, err := parseSpecifier(tag)
		if err != nil {
			if p.inHeader {
				// header text is free-form
				continue
			}
			return nil, fmt.Errorf("%w: %v at offset %d", ErrMalformed, err, start)
		}

		if length > len(p.data)-p.pos {
			return nil, fmt.Errorf("%w: value of %s truncated at offset %d", ErrMalformed, name, p.pos)
		}

		current[name] = string(p.data[p.pos : p.pos+length])
		p.pos += length
	}
}

// parseSpecifier splits NAME:LEN[:TYPE]
func parseSpecifier(tag string) (string, int, error) {
	parts := strings.Split(tag, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return "", 0, fmt.Errorf("bad field specifier <%s>", tag)
	}

	length, err := strconv.Atoi(parts[1])
	if err != nil || length < 0 {
		return "", 0, fmt.Errorf("bad length in <%s>", tag)
	}

	return strings.ToUpper(parts[0]), length, nil
}

// Callsigns returns the unique CALL values in order of first appearance
func Callsigns(records []Record) []string {
	seen := make(map[string]bool, len(records))
	calls := make([]string, 0, len(records))

	for _, r := range records {
		call := r.Call()
		if call == "" || seen[call] {
			continue
		}

		seen[call] = true
		calls = append(calls, call)
	}

	return calls
}

// Index answers worked-before questions about a log
type Index struct {
	calls []string
	qsos  map[string]int
}

func NewIndex(records []Record) *Index {
	idx := &Index{
		calls: Callsigns(records),
		qsos:  make(map[string]int),
	}

	for _, r := range records {
		if call := r.Call(); call != "" {
			idx.qsos[call]++
		}
	}

	return idx
}

// Worked reports whether call appears in the log, ignoring case
func (i *Index) Worked(call string) bool {
	return i.QSOs(call) > 0
}

// QSOs returns the number of QSOs with call
func (i *Index) QSOs(call string) int {
	return i.qsos[strings.ToUpper(strings.TrimSpace(call))]
}

func (i *Index) Callsigns() []string {
	return i.calls
}

func (i *Index) Len() int {
	return len(i.calls)
}
