// Package naming assigns pool aliases and builds segment/deliverable file
// names. Aliases are short symbolic identifiers ("c001", "c002", …) that
// decouple pool files from their original (often unwieldy) source names;
// the alias map persisted by the state package records the mapping back.
package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

const aliasPrefix = "c"

// NextAlias returns the lowest unused alias of the form c001, c002, …
// given the aliases already present in the map. Growth past c999 simply
// widens the number.
func NextAlias(existing map[string]string) string {
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%03d", aliasPrefix, i)
		if _, taken := existing[candidate]; !taken {
			return candidate
		}
	}
}

// AliasFor returns the alias already assigned to baseName, if any.
func AliasFor(existing map[string]string, baseName string) (string, bool) {
	for alias, name := range existing {
		if name == baseName {
			return alias, true
		}
	}
	return "", false
}

// SegmentFileName builds the pool file name for one scene-bounded segment:
// "<alias>_<ordinal>.mp4". Ordinals follow boundary order starting at 1.
func SegmentFileName(alias string, ordinal int) string {
	return fmt.Sprintf("%s_%d.mp4", alias, ordinal)
}

// SegmentAlias is the identifier recorded in assemblies and the synthesis
// manifest: "<alias>_<ordinal>" without extension.
func SegmentAlias(alias string, ordinal int) string {
	return fmt.Sprintf("%s_%d", alias, ordinal)
}

// ParseSegmentName splits a pool file name back into its alias and ordinal.
// Returns ok=false for files that don't follow the pool convention.
func ParseSegmentName(fileName string) (alias string, ordinal int, ok bool) {
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	idx := strings.LastIndexByte(stem, '_')
	if idx <= 0 || idx == len(stem)-1 {
		return "", 0, false
	}
	var n int
	if _, err := fmt.Sscanf(stem[idx+1:], "%d", &n); err != nil || n < 1 {
		return "", 0, false
	}
	return stem[:idx], n, true
}

// OutputFileName builds a deliverable name from the persisted output index:
// "video_0001.mp4". The index survives across batches so names never collide.
func OutputFileName(index int) string {
	return fmt.Sprintf("video_%04d.mp4", index)
}

// EnhancedFileName derives the output name for an upscaled video:
// "<stem>_x<factor>.mp4" next to the input.
func EnhancedFileName(inputPath string, factor int) string {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, fmt.Sprintf("%s_x%d.mp4", stem, factor))
}
