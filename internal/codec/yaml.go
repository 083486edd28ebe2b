package codec

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/gridedit/internal/core"
)

// YAML stores the same shape as JSON, for hand-edited fixtures.
type YAML struct{}

type yamlDocument struct {
	FileName string      `yaml:"file_name,omitempty"`
	Sheets   []yamlSheet `yaml:"sheets"`
}

type yamlSheet struct {
	ID      string  `yaml:"id,omitempty"`
	Name    string  `yaml:"name"`
	Columns int     `yaml:"columns,omitempty"`
	Rows    [][]any `yaml:"rows"`
}

func (YAML) Decode(r io.Reader) (*core.Document, error) {
	var in yamlDocument
	if err := yaml.NewDecoder(CleanText(r)).Decode(&in); err != nil && err != io.EOF {
		return nil, err
	}

	sheets := make([]*core.Sheet, 0, len(in.Sheets))
	for _, ys := range in.Sheets {
		rows := make([][]core.CellValue, len(ys.Rows))
		for i, row := range ys.Rows {
			rows[i] = make([]core.CellValue, len(row))
			for j, v := range row {
				rows[i][j] = core.FromAny(v)
			}
		}
		snap := core.SheetSnapshot{ID: ys.ID, Name: ys.Name, Columns: ys.Columns, Rows: rows}
		sheets = append(sheets, snap.Restore())
	}
	return core.NewDocument(in.FileName, sheets...), nil
}

func (YAML) Encode(w io.Writer, doc *core.Document) error {
	out := yamlDocument{FileName: doc.FileName}
	for _, s := range doc.Sheets {
		ys := yamlSheet{ID: s.ID, Name: s.Name, Columns: s.ColumnCount(), Rows: make([][]any, s.RowCount())}
		for i, row := range s.Rows() {
			ys.Rows[i] = make([]any, len(row))
			for j, v := range row {
				ys.Rows[i][j] = v.Any()
			}
		}
		out.Sheets = append(out.Sheets, ys)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
