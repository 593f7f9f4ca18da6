// Package store persists traced field line sets as filesystem runs, JSON
// exports and sqlite databases.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/fieldtrace/internal/fltrace"
	"github.com/san-kum/fieldtrace/internal/geometry"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string         `json:"id"`
	Model     string         `json:"model"`
	Scheme    string         `json:"scheme"`
	Timestamp time.Time      `json:"timestamp"`
	NumSeeds  int            `json:"num_seeds"`
	NumLines  int            `json:"num_lines"`
	NumVoid   int            `json:"num_void"`
	NumPoints int            `json:"num_points"`
	Causes    map[string]int `json:"causes"`
}

// Save writes one run directory holding metadata.json and lines.csv. The
// CSV carries one row per traced point: line id, point index, x, y, z, plus
// one column per extracted scalar series.
func (s *Store) Save(model, scheme string, numSeeds int, set *fltrace.FieldLineSet) (string, error) {
	runID := fmt.Sprintf("%s_%d", model, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	causes := make(map[string]int, len(set.Causes))
	for cause, n := range set.Causes {
		causes[cause.String()] = n
	}
	meta := RunMetadata{
		ID:        runID,
		Model:     model,
		Scheme:    scheme,
		Timestamp: time.Now(),
		NumSeeds:  numSeeds,
		NumLines:  set.NumLines(),
		NumVoid:   set.NumVoid,
		NumPoints: set.NumPoints(),
		Causes:    causes,
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvPath := filepath.Join(runDir, "lines.csv")
	csvFile, err := os.Create(csvPath)
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	defer w.Flush()

	scalarNames := scalarColumnNames(set)
	header := []string{"line", "point", "x", "y", "z"}
	header = append(header, scalarNames...)
	if err := w.Write(header); err != nil {
		return "", err
	}

	for lineID, line := range set.Lines {
		for pointIdx, p := range line.Positions {
			row := []string{
				strconv.Itoa(lineID),
				strconv.Itoa(pointIdx),
				formatCoord(p[geometry.X]),
				formatCoord(p[geometry.Y]),
				formatCoord(p[geometry.Z]),
			}
			for _, name := range scalarNames {
				values := line.ScalarValues[name]
				if pointIdx < len(values) {
					row = append(row, formatCoord(values[pointIdx]))
				} else {
					row = append(row, "")
				}
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}

	return runID, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadLines reads back the positions of every line in a run, grouped by
// line id in file order.
func (s *Store) LoadLines(runID string) ([][]geometry.Point3, error) {
	csvPath := filepath.Join(s.baseDir, runID, "lines.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]geometry.Point3{}, nil
	}

	var lines [][]geometry.Point3
	lastLine := -1
	for _, record := range records[1:] {
		if len(record) < 5 {
			continue
		}
		lineID, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("bad line id %q: %w", record[0], err)
		}
		var p geometry.Point3
		for a := 0; a < geometry.NumAxes; a++ {
			v, err := strconv.ParseFloat(record[2+a], 64)
			if err != nil {
				return nil, fmt.Errorf("bad coordinate %q: %w", record[2+a], err)
			}
			p[a] = v
		}
		if lineID != lastLine {
			lines = append(lines, nil)
			lastLine = lineID
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], p)
	}
	return lines, nil
}

func scalarColumnNames(set *fltrace.FieldLineSet) []string {
	seen := make(map[string]bool)
	var names []string
	for _, line := range set.Lines {
		for name := range line.ScalarValues {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	// Map order varies between runs; the CSV header must not.
	sort.Strings(names)
	return names
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
