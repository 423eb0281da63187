package enhance

import "regexp"

// FailureCategory is the closed set of recognized upscaler failure modes,
// classified from the captured diagnostic streams. Matching against tool
// output is inherently version-sensitive; unrecognized output lands in
// CategoryUnknown and is treated as terminal.
type FailureCategory int

const (
	CategoryUnknown FailureCategory = iota

	// CategoryBadOutputPath marks the upscaler rejecting a whole-video
	// output target. This is the only class that triggers the per-frame
	// fallback: the tool handles single images at the same path fine.
	CategoryBadOutputPath

	// CategoryModelMissing marks a missing or unreadable model file.
	CategoryModelMissing

	// CategoryGPUUnavailable marks Vulkan device initialization failures.
	CategoryGPUUnavailable
)

func (c FailureCategory) String() string {
	switch c {
	case CategoryBadOutputPath:
		return "bad-output-path"
	case CategoryModelMissing:
		return "model-missing"
	case CategoryGPUUnavailable:
		return "gpu-unavailable"
	default:
		return "unknown"
	}
}

var failurePatterns = []struct {
	category FailureCategory
	re       *regexp.Regexp
}{
	{CategoryBadOutputPath, regexp.MustCompile(`(?i)invalid output ?path`)},
	{CategoryBadOutputPath, regexp.MustCompile(`(?i)output ?path.*(not supported|is a directory)`)},
	{CategoryModelMissing, regexp.MustCompile(`(?i)(model|param|\.bin).*(not found|no such file)`)},
	{CategoryModelMissing, regexp.MustCompile(`(?i)failed to load model`)},
	{CategoryGPUUnavailable, regexp.MustCompile(`(?i)vkCreateInstance|vulkan.*(not available|failed)|no gpu device`)},
}

// ClassifyFailure maps captured upscaler output to a recognized category.
// First matching pattern wins.
func ClassifyFailure(output string) FailureCategory {
	for _, p := range failurePatterns {
		if p.re.MatchString(output) {
			return p.category
		}
	}
	return CategoryUnknown
}
