package store

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/fieldtrace/internal/fltrace"
)

type ExportData struct {
	Model     string           `json:"model"`
	Scheme    string           `json:"scheme"`
	NumLines  int              `json:"num_lines"`
	NumVoid   int              `json:"num_void"`
	NumPoints int              `json:"num_points"`
	Causes    map[string]int   `json:"causes"`
	Lines     []ExportLineData `json:"lines"`
}

type ExportLineData struct {
	Cause        string               `json:"cause"`
	NumPoints    int                  `json:"num_points"`
	Length       float64              `json:"length"`
	Positions    [][3]float64         `json:"positions"`
	ScalarValues map[string][]float64 `json:"scalar_values,omitempty"`
}

func buildExportData(model, scheme string, set *fltrace.FieldLineSet) ExportData {
	causes := make(map[string]int, len(set.Causes))
	for cause, n := range set.Causes {
		causes[cause.String()] = n
	}

	data := ExportData{
		Model:     model,
		Scheme:    scheme,
		NumLines:  set.NumLines(),
		NumVoid:   set.NumVoid,
		NumPoints: set.NumPoints(),
		Causes:    causes,
		Lines:     make([]ExportLineData, len(set.Lines)),
	}
	for i, line := range set.Lines {
		positions := make([][3]float64, len(line.Positions))
		for j, p := range line.Positions {
			positions[j] = p
		}
		data.Lines[i] = ExportLineData{
			Cause:        line.Cause.String(),
			NumPoints:    line.NumPoints(),
			Length:       line.Length(),
			Positions:    positions,
			ScalarValues: line.ScalarValues,
		}
	}
	return data
}

func exportJSONTo(w io.Writer, model, scheme string, set *fltrace.FieldLineSet) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(buildExportData(model, scheme, set))
}

func ExportJSON(path, model, scheme string, set *fltrace.FieldLineSet) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return exportJSONTo(file, model, scheme, set)
}

func ExportJSONStdout(model, scheme string, set *fltrace.FieldLineSet) error {
	return exportJSONTo(os.Stdout, model, scheme, set)
}
