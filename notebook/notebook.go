// Package notebook reads Jupyter notebook documents and flattens them into
// plain text for classification and embedding.
package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// ClassifyLimit is the number of characters handed to classification prompts.
	ClassifyLimit = 4000
	// EmbedLimit is the number of characters handed to the embedder.
	EmbedLimit = 8000
	// SampleLimit is the length of the stored content sample.
	SampleLimit = 500
)

var (
	// ErrNotJSON indicates the payload is not valid JSON.
	ErrNotJSON = errors.New("notebook is not valid JSON")
	// ErrNotObject indicates the payload is JSON but not a JSON object.
	ErrNotObject = errors.New("notebook is not a JSON object")
)

// Cell is a single notebook cell. Only the fields used for text extraction are decoded.
type Cell struct {
	CellType string `json:"cell_type"`
	Source   Lines  `json:"source"`
	// Input holds code text in nbformat 3 notebooks.
	Input Lines `json:"input"`
}

// Text returns the cell's source joined without separators.
func (c Cell) Text() string {
	if len(c.Source) == 0 && len(c.Input) > 0 {
		return c.Input.String()
	}
	return c.Source.String()
}

// Lines is a cell source. Notebooks store it either as one string or as a list of lines.
type Lines []string

// UnmarshalJSON accepts a string, a list of strings, or null.
func (l *Lines) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = Lines{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("cell source must be a string or list of strings: %w", err)
	}
	*l = many
	return nil
}

// String joins the lines as stored; notebook lines already carry their newlines.
func (l Lines) String() string {
	return strings.Join(l, "")
}

type worksheet struct {
	Cells []Cell `json:"cells"`
}

// Notebook is a parsed notebook document.
type Notebook struct {
	Cells      []Cell      `json:"cells"`
	Worksheets []worksheet `json:"worksheets"`
}

// AllCells returns cells in document order, including nbformat 3 worksheet cells.
func (n *Notebook) AllCells() []Cell {
	if len(n.Cells) > 0 || len(n.Worksheets) == 0 {
		return n.Cells
	}
	var cells []Cell
	for _, ws := range n.Worksheets {
		cells = append(cells, ws.Cells...)
	}
	return cells
}

// Validate checks that raw is a JSON object, the shape every stored notebook must have.
func Validate(raw []byte) error {
	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("%w: %w", ErrNotJSON, err)
	}
	if _, ok := probe.(map[string]any); !ok {
		return ErrNotObject
	}
	return nil
}

// Parse decodes a notebook document. Cells with a malformed source make the whole parse fail.
func Parse(raw []byte) (*Notebook, error) {
	if err := Validate(raw); err != nil {
		return nil, err
	}
	var nb Notebook
	if err := json.Unmarshal(raw, &nb); err != nil {
		return nil, fmt.Errorf("decode notebook: %w", err)
	}
	return &nb, nil
}

// ExtractText flattens the notebook into one string.
// Markdown cells contribute their source as-is, code cells contribute a space followed
// by their source, and every other cell type is skipped.
func (n *Notebook) ExtractText() string {
	var sb strings.Builder
	for _, cell := range n.AllCells() {
		switch cell.CellType {
		case "markdown":
			sb.WriteString(cell.Text())
		case "code":
			sb.WriteString(" ")
			sb.WriteString(cell.Text())
		}
	}
	return sb.String()
}

// ExtractText parses raw and flattens it. See Notebook.ExtractText.
func ExtractText(raw []byte) (string, error) {
	nb, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return nb.ExtractText(), nil
}

// Truncate returns the first limit characters of s. It never splits a UTF-8 sequence.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
