package photosync

import (
	"fmt"
	"regexp"
	"time"
)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeFileName replaces every character outside [a-zA-Z0-9.-] with '_'.
func SanitizeFileName(name string) string {
	if name == "" {
		return "photo"
	}
	return unsafeFileChars.ReplaceAllString(name, "_")
}

// StoragePath builds "<tenant>/<contact>/<unix millis>_<sanitized name>".
func StoragePath(tenantID, contactID string, at time.Time, fileName string) string {
	return fmt.Sprintf("%s/%s/%d_%s", tenantID, contactID, at.UnixMilli(), SanitizeFileName(fileName))
}
