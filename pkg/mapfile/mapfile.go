// Package mapfile reads and writes the line-oriented street map format:
//
//	i <id> <lat> <lon>      declares an intersection
//	r <id> <fromId> <toId>  declares a road between two intersections
//
// Fields are separated by any run of whitespace. Blank lines and lines with
// an unrecognised record kind are ignored.
package mapfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrMalformed is returned for a recognised record with the wrong number of
// fields or an unparsable coordinate.
var ErrMalformed = errors.New("malformed map record")

// MaxIDLen is the longest intersection or road id accepted, in bytes.
const MaxIDLen = 4096

// Intersection is an `i` record.
type Intersection struct {
	ID  string
	Lat float64
	Lon float64
}

// Road is an `r` record. From and To reference intersection ids.
type Road struct {
	ID   string
	From string
	To   string
}

// Record is one parsed line. Exactly one of Intersection or Road is set.
type Record struct {
	Line         int
	Intersection *Intersection
	Road         *Road
}

// ParseResult holds the records of a map file in file order.
type ParseResult struct {
	Records []Record
}

// NumIntersections counts `i` records, including redeclarations.
func (p *ParseResult) NumIntersections() int {
	n := 0
	for _, r := range p.Records {
		if r.Intersection != nil {
			n++
		}
	}
	return n
}

// NumRoads counts `r` records.
func (p *ParseResult) NumRoads() int {
	return len(p.Records) - p.NumIntersections()
}

// AddIntersection appends an `i` record.
func (p *ParseResult) AddIntersection(id string, lat, lon float64) {
	p.Records = append(p.Records, Record{Intersection: &Intersection{ID: id, Lat: lat, Lon: lon}})
}

// AddRoad appends an `r` record.
func (p *ParseResult) AddRoad(id, from, to string) {
	p.Records = append(p.Records, Record{Road: &Road{ID: id, From: from, To: to}})
}

// Parse reads map records from r.
func Parse(r io.Reader) (*ParseResult, error) {
	result := &ParseResult{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "i" || fields[0] == "r" {
			for _, id := range idFields(fields) {
				if len(id) > MaxIDLen {
					return nil, fmt.Errorf("line %d: %w: id %.32q... longer than %d bytes", lineNo, ErrMalformed, id, MaxIDLen)
				}
			}
		}

		switch fields[0] {
		case "i":
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: %w: intersection wants 3 fields, got %d", lineNo, ErrMalformed, len(fields)-1)
			}
			lat, err := parseCoord(fields[2], 90)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w: latitude %q: %v", lineNo, ErrMalformed, fields[2], err)
			}
			lon, err := parseCoord(fields[3], 180)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w: longitude %q: %v", lineNo, ErrMalformed, fields[3], err)
			}
			result.Records = append(result.Records, Record{
				Line:         lineNo,
				Intersection: &Intersection{ID: fields[1], Lat: lat, Lon: lon},
			})
		case "r":
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: %w: road wants 3 fields, got %d", lineNo, ErrMalformed, len(fields)-1)
			}
			result.Records = append(result.Records, Record{
				Line: lineNo,
				Road: &Road{ID: fields[1], From: fields[2], To: fields[3]},
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read line %d: %w", lineNo+1, err)
	}

	return result, nil
}

// idFields returns the id fields of an i or r record.
func idFields(fields []string) []string {
	if len(fields) < 2 {
		return nil
	}
	if fields[0] == "i" {
		return fields[1:2]
	}
	return fields[1:min(len(fields), 4)]
}

// ReadFile parses the map file at path.
func ReadFile(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Write emits result in map file format, one record per line.
func Write(w io.Writer, result *ParseResult) error {
	bw := bufio.NewWriter(w)
	for _, rec := range result.Records {
		var err error
		switch {
		case rec.Intersection != nil:
			in := rec.Intersection
			_, err = fmt.Fprintf(bw, "i %s %s %s\n", in.ID,
				strconv.FormatFloat(in.Lat, 'f', -1, 64),
				strconv.FormatFloat(in.Lon, 'f', -1, 64))
		case rec.Road != nil:
			_, err = fmt.Fprintf(bw, "r %s %s %s\n", rec.Road.ID, rec.Road.From, rec.Road.To)
		}
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes result to path through a temp file and an atomic rename.
func WriteFile(path string, result *ParseResult) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	if err := Write(f, result); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func parseCoord(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || v < -limit || v > limit {
		return 0, fmt.Errorf("out of range [-%g, %g]", limit, limit)
	}
	return v, nil
}
