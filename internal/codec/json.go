package codec

import (
	"encoding/json"
	"io"

	"github.com/JonMunkholm/gridedit/internal/core"
)

// JSON stores the full document: every sheet, its id, name, width and rows.
//
//	{"file_name": "...", "sheets": [{"id": "...", "name": "Sheet1", "columns": 2, "rows": [["a", 1], [null, true]]}]}
type JSON struct {
	Indent string
}

func (j JSON) Decode(r io.Reader) (*core.Document, error) {
	var doc core.Document
	if err := json.NewDecoder(CleanText(r)).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (j JSON) Encode(w io.Writer, doc *core.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", j.Indent)
	return enc.Encode(doc)
}
