package models

import (
	"fmt"
	"path/filepath"
	"strings"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordIDString safely extracts the string ID from a SurrealDB RecordID.
// Returns an error if the ID is not a string type.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

// MustRecordIDString extracts the string ID, panicking if not a string.
// Use only after DB operations that are known to return string ids.
func MustRecordIDString(id surrealmodels.RecordID) string {
	s, err := RecordIDString(id)
	if err != nil {
		panic(err)
	}
	return s
}

// FileStem derives a safe download stem from an uploaded filename: the
// extension is stripped and every non-alphanumeric rune becomes a hyphen,
// so "Weekly Sync (v2).mp3" -> "weekly-sync--v2". The mapping is
// deterministic: the same upload always yields the same download names.
func FileStem(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	var b strings.Builder
	for _, r := range strings.ToLower(stem) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// DownloadName builds an artifact download filename from a prefix and the
// original upload name, e.g. DownloadName("mindmap", "meeting.mp3", "md")
// -> "mindmap-meeting.md".
func DownloadName(prefix, filename, ext string) string {
	return fmt.Sprintf("%s-%s.%s", prefix, FileStem(filename), ext)
}
