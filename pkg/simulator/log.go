package simulator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edp1096/spicesweep/internal/textenc"
)

// ReadLog returns the lines of a simulator log, whatever its encoding.
func ReadLog(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, _, err := textenc.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	lines := strings.Split(strings.TrimRight(text, "\r\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	return lines, nil
}

// CheckLog fails when any log line mentions an Error.
func CheckLog(lines []string) error {
	var bad []string
	for _, line := range lines {
		if strings.Contains(line, "Error") {
			bad = append(bad, strings.TrimSpace(line))
		}
	}
	if len(bad) > 0 {
		return &SimulationError{Lines: bad}
	}
	return nil
}

// CopyLog writes lines into dir under the log's base name and returns the
// new path.
func CopyLog(logPath string, lines []string, dir string) (string, error) {
	dst := filepath.Join(dir, filepath.Base(logPath))

	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(dst, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("copying log: %w", err)
	}
	return dst, nil
}
