package export

import (
	"bufio"
	"io"
	"strings"
)

const utf8BOM = "\uFEFF"

// WriteCSV writes rows as UTF-8 CSV with a byte order mark, every cell
// quoted and CRLF line endings, the form spreadsheet tools open without an
// import dialog.
func WriteCSV(w io.Writer, rows [][]string) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return err
	}
	for i, row := range rows {
		if i > 0 {
			if _, err := bw.WriteString("\r\n"); err != nil {
				return err
			}
		}
		for j, cell := range row {
			if j > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(`"` + strings.ReplaceAll(cell, `"`, `""`) + `"`); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
