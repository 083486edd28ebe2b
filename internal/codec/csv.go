package codec

import (
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/gridedit/internal/core"
)

// CSVSheetName is the name given to the single sheet of a CSV file.
const CSVSheetName = "Sheet1"

// numericPattern accepts plain decimal and scientific notation. It keeps
// strconv from turning "inf", "NaN" or hex literals into numbers.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// CSV reads one sheet per file. The first line is data like any other.
// Writing emits the first sheet only.
type CSV struct {
	Comma rune
}

func (c CSV) comma() rune {
	if c.Comma == 0 {
		return ','
	}
	return c.Comma
}

func (c CSV) Decode(r io.Reader) (*core.Document, error) {
	cr := csv.NewReader(CleanText(r))
	cr.Comma = c.comma()
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	var rows [][]core.CellValue
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]core.CellValue, len(record))
		for i, field := range record {
			row[i] = ParseCell(field)
		}
		rows = append(rows, row)
	}

	return core.NewDocument("", core.NewSheet(CSVSheetName, rows)), nil
}

func (c CSV) Encode(w io.Writer, doc *core.Document) error {
	cw := csv.NewWriter(w)
	cw.Comma = c.comma()

	if s, ok := doc.Sheet(0); ok {
		record := make([]string, s.ColumnCount())
		for _, row := range s.Rows() {
			for i, v := range row {
				record[i] = v.Text()
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseCell infers a cell value from CSV text: empty is Null, a decimal
// number is Number, true/false in any case is Bool, anything else String.
// Text is kept verbatim; only classification trims surrounding spaces.
func ParseCell(field string) core.CellValue {
	if field == "" {
		return core.Null()
	}
	trimmed := strings.TrimSpace(field)
	if numericPattern.MatchString(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return core.Number(f)
		}
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return core.Bool(true)
	case "false":
		return core.Bool(false)
	}
	return core.String(field)
}
