package seqkit

import (
	"fmt"
	"strings"
)

// ParseTable reads seqkit's tab-separated output: a header line followed by
// one row per record. Blank lines are ignored.
func ParseTable(out string) ([]map[string]string, error) {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrMalformedOutput)
	}

	header := strings.Split(strings.TrimSpace(lines[0]), "\t")
	rows := make([]map[string]string, 0, len(lines)-1)
	for i, l := range lines[1:] {
		values := strings.Split(strings.TrimRight(l, " "), "\t")
		if len(values) != len(header) {
			return nil, fmt.Errorf("%w: row %d has %d columns, header has %d",
				ErrMalformedOutput, i+1, len(values), len(header))
		}
		row := make(map[string]string, len(header))
		for j, h := range header {
			row[h] = strings.TrimSpace(values[j])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseStats reads `seqkit stats -T` output for a single input file.
func ParseStats(out string) (map[string]string, error) {
	rows, err := ParseTable(out)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: stats output has no data row", ErrMalformedOutput)
	}
	return rows[0], nil
}
