package simulator

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ToWinePath maps a host path inside prefix/drive_c to its C:\ form.
func ToWinePath(path, prefix string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	driveC := filepath.Join(prefix, "drive_c")

	rel, err := filepath.Rel(driveC, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is not under %s", path, driveC)
	}
	if rel == "." {
		return `C:\`, nil
	}
	return `C:\` + strings.ReplaceAll(filepath.ToSlash(rel), "/", `\`), nil
}

// RelativeTo returns the part of path after the last occurrence of marker,
// e.g. the netlist path relative to the LTspiceIV install directory. The
// path is returned unchanged when marker is absent.
func RelativeTo(path, marker string) string {
	if marker == "" {
		return path
	}
	if i := strings.LastIndex(path, marker); i >= 0 {
		return path[i+len(marker):]
	}
	return path
}

// siblingPath swaps the extension of the netlist path.
func siblingPath(netlist, ext string) string {
	return strings.TrimSuffix(netlist, filepath.Ext(netlist)) + ext
}
