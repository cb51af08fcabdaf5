package ai

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Labels is the model's class table, indexed by class id.
type Labels []string

// LoadLabels reads a label file with one class name per line.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	return ParseLabels(f)
}

// ParseLabels skips blank lines and lines starting with '#'.
func ParseLabels(r io.Reader) (Labels, error) {
	var labels Labels
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}

// Name returns the label for a class id, or class_<id> when unknown.
func (l Labels) Name(classID int) string {
	if classID >= 0 && classID < len(l) {
		return l[classID]
	}
	return fmt.Sprintf("class_%d", classID)
}
