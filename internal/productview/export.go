package productview

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/odyssey-erp/stockdesk/internal/catalog"
)

// Export writes rows as a JSON array of objects holding only columns, in
// column order. Null fields are written as null.
func Export(w io.Writer, rows []catalog.Product, columns []Column) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(string(col))
			if err != nil {
				return err
			}
			val, err := json.Marshal(col.value(row))
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteString("]\n")
	_, err := w.Write(buf.Bytes())
	return err
}
