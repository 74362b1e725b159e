package consumable

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// BillArchive keeps a copy of every uploaded bill image on disk so a bad
// extraction can be re-checked against the original document later.
type BillArchive struct {
	basePath string
}

// NewBillArchive creates a new BillArchive rooted at basePath
func NewBillArchive(basePath string) (*BillArchive, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	return &BillArchive{basePath: basePath}, nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	multiSpace  = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length; phone cameras generate long, messy names
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	base = unsafeChars.ReplaceAllString(base, "")
	base = multiSpace.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "bill"
	}

	return base + ext
}

// Save writes a bill image to the archive and returns the stored filename
func (a *BillArchive) Save(filename string, data []byte) (string, error) {
	name := sanitizeFilename(filename)
	path := filepath.Join(a.basePath, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing bill file: %w", err)
	}
	return name, nil
}
