package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var assignmentPattern = regexp.MustCompile(
	`(?m)^[ \t]*(?:[A-Za-z_][A-Za-z0-9_]*[.$])*transform[.$](stem_uid|version)[ \t]*(?:=|<-)[ \t]*["']([^"'\n]*)["']`,
)

// Kind reports whether the source is a notebook or a script.
func Kind(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".ipynb") {
		return "notebook"
	}
	return "script"
}

// ParseSource reads the identity a script or notebook declares. It returns a
// nil identity when the file declares no stem uid. A stem uid without a
// version declares version "1".
func ParseSource(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	text := string(data)
	if Kind(path) == "notebook" {
		text, err = notebookCode(data)
		if err != nil {
			return nil, fmt.Errorf("parse notebook %s: %w", filepath.Base(path), err)
		}
	}
	return parseDeclarations(text)
}

func parseDeclarations(text string) (*Identity, error) {
	var identity Identity
	for _, match := range assignmentPattern.FindAllStringSubmatch(text, -1) {
		value := strings.TrimSpace(match[2])
		switch match[1] {
		case "stem_uid":
			identity.StemUID = value
		case "version":
			identity.Version = value
		}
	}
	if identity.StemUID == "" {
		return nil, nil
	}
	if err := ValidateStemUID(identity.StemUID); err != nil {
		return nil, err
	}
	if identity.Version == "" {
		identity.Version = "1"
	}
	return &identity, nil
}

type notebookDoc struct {
	Cells []struct {
		CellType string          `json:"cell_type"`
		Source   json.RawMessage `json:"source"`
	} `json:"cells"`
}

// notebookCode joins the code cells of an .ipynb document. Cell sources are
// either a string or a list of lines.
func notebookCode(data []byte) (string, error) {
	var doc notebookDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, cell := range doc.Cells {
		if cell.CellType != "code" || len(cell.Source) == 0 {
			continue
		}
		var lines []string
		if err := json.Unmarshal(cell.Source, &lines); err != nil {
			var single string
			if err := json.Unmarshal(cell.Source, &single); err != nil {
				return "", fmt.Errorf("cell source: %w", err)
			}
			lines = []string{single}
		}
		for _, line := range lines {
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Name derives a human readable transform name from the file name.
func Name(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	name := strings.TrimSpace(cleaned.String())
	if name == "" {
		return "Untitled"
	}
	return cases.Title(language.Und).String(name)
}

// HashSource returns the hex SHA-256 of the file content.
func HashSource(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash source: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
