package metadata

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteSummary prints a human readable description of fc: file header, the
// schema leaves, and one line per column chunk.
func WriteSummary(w io.Writer, fc *FileContext) error {
	fmt.Fprintf(w, "file:        %s\n", fc.Path)
	fmt.Fprintf(w, "size:        %d bytes\n", fc.Size)
	fmt.Fprintf(w, "version:     %d\n", fc.Version)
	fmt.Fprintf(w, "created_by:  %s\n", fc.Settings.CreatedBy)
	fmt.Fprintf(w, "rows:        %d\n", fc.NumRows)
	fmt.Fprintf(w, "row_groups:  %d\n", len(fc.RowGroups))
	fmt.Fprintf(w, "flat:        %t\n\n", fc.Flat)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tPHYSICAL\tLOGICAL\tREP\tDEF")
	for i := range fc.Columns {
		col := &fc.Columns[i]
		logical := string(col.Logical)
		if logical == "" {
			logical = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
			col.Path, col.PhysicalType, logical, col.MaxRepetitionLevel, col.MaxDefinitionLevel)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, rg := range fc.RowGroups {
		fmt.Fprintf(w, "\nrow group %d: %d rows, %d bytes compressed, %d bytes total\n",
			rg.Index, rg.NumRows, rg.CompressedSize, rg.TotalByteSize)
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  COLUMN\tCODEC\tENCODINGS\tVALUES\tNULLS\tCOMPRESSED\tUNCOMPRESSED\tDATA_OFFSET\tDICT_OFFSET\tDISTINCT")
		for i := range fc.Columns {
			col := &fc.Columns[i]
			if rg.Index >= len(col.Chunks) {
				continue
			}
			chunk := col.Chunks[rg.Index]
			distinct := "-"
			if chunk.HasDistinctCount {
				distinct = fmt.Sprint(chunk.DistinctCount)
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
				col.Path, chunk.Codec, joinEncodings(chunk.Encodings),
				chunk.NumValues, chunk.NullCount,
				chunk.CompressedSize, chunk.UncompressedSize,
				chunk.DataPageOffset, chunk.DictionaryPageOffset, distinct)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func joinEncodings(encodings []Encoding) string {
	names := make([]string, len(encodings))
	for i, e := range encodings {
		names[i] = e.String()
	}
	return strings.Join(names, ",")
}
