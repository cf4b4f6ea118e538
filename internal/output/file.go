package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/rtm0/gridquery/internal/query"
)

// Output formats.
const (
	FormatCSV      = "csv"
	FormatSnapshot = "msgpack"
)

// FormatFor returns format, or the format implied by the file name when
// format is empty.
func FormatFor(path, format string) (string, error) {
	switch format {
	case FormatCSV, FormatSnapshot:
		return format, nil
	case "":
		if strings.HasSuffix(path, SnapshotSuffix) {
			return FormatSnapshot, nil
		}
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown output format %q", format)
}

// WriteFile writes t to path in the given format ("" picks by suffix). The
// file is written under a temporary name and renamed into place so a failed
// run never leaves a partial table behind.
func WriteFile(path, format string, t *query.Table) error {
	format, err := FormatFor(path, format)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if format == FormatSnapshot {
		err = WriteSnapshot(f, t)
	} else {
		err = WriteCSV(f, t)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
