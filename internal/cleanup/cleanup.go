// Package cleanup implements the naming and best-effort removal rules
// for temporary stores: a temporary store's file is named so a crash
// that skips normal disposal can still be cleaned up the next time any
// process opens a temporary store in the same directory, without a
// live cleanup daemon.
package cleanup

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

const (
	prefix           = "[LOG-BUFFER] "
	autoDeleteSuffix = " [AUTO DELETE]"
)

// marker matches "[LOG-BUFFER] <uuid-v4> [AUTO DELETE]" exactly.
var marker = regexp.MustCompile(`^\[LOG-BUFFER\] [0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12} \[AUTO DELETE\]$`)

// NewName generates a fresh temporary-store file name. When
// autoDelete is set, the name carries the marker suffix that both this
// process (on dispose) and a later process (on directory scan) treat
// as safe to unlink.
func NewName(autoDelete bool) string {
	name := prefix + uuid.NewString()
	if autoDelete {
		name += autoDeleteSuffix
	}
	return name
}

// IsMarked reports whether name matches the auto-delete marker
// pattern.
func IsMarked(name string) bool {
	return marker.MatchString(name)
}

// ScanAndClean unlinks every marked file directly inside dir. Errors —
// including dir not existing — are swallowed; this is best-effort
// cleanup of crash leftovers, not a guarantee.
func ScanAndClean(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsMarked(e.Name()) {
			os.Remove(filepath.Join(dir, e.Name()))
		}
	}
}

// DeleteIfMarked unlinks path if its base name matches the auto-delete
// marker. The error, if any, is swallowed — dispose-time cleanup is
// best-effort.
func DeleteIfMarked(path string) {
	if IsMarked(filepath.Base(path)) {
		os.Remove(path)
	}
}
