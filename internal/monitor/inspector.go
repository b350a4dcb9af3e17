package monitor

import (
	"regexp"

	"github.com/rs/zerolog/log"
)

// ArgInspector scans seqkit argument values for attempts to reach outside
// the per-invocation working directory. seqkit is exec'd without a shell,
// so these patterns are about file access, not command injection.
type ArgInspector struct {
	patterns []DetectionPattern
}

// DetectionPattern defines a suspicious pattern to match.
type DetectionPattern struct {
	Name        string
	Description string
	Regex       *regexp.Regexp
	Severity    Severity
}

// Severity levels for detected patterns.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Detection represents a matched pattern.
type Detection struct {
	Pattern  string `json:"pattern"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
	Arg      int    `json:"arg"`
}

// NewArgInspector creates an inspector with default patterns.
func NewArgInspector() *ArgInspector {
	return &ArgInspector{
		patterns: defaultPatterns(),
	}
}

// Inspect checks every argument and returns one detection per match.
func (d *ArgInspector) Inspect(args []string) []Detection {
	var detections []Detection

	for i, arg := range args {
		for _, p := range d.patterns {
			if !p.Regex.MatchString(arg) {
				continue
			}
			detections = append(detections, Detection{
				Pattern:  p.Name,
				Severity: p.Severity.String(),
				Detail:   p.Description,
				Arg:      i,
			})

			log.Warn().
				Str("pattern", p.Name).
				Str("severity", p.Severity.String()).
				Int("arg", i).
				Msg("suspicious seqkit argument")
		}
	}

	return detections
}

func defaultPatterns() []DetectionPattern {
	return []DetectionPattern{
		{
			Name:        "path_traversal",
			Description: "Parent directory reference in argument",
			Regex:       regexp.MustCompile(`(^|[/\\=])\.\.([/\\]|$)`),
			Severity:    SeverityHigh,
		},
		{
			Name:        "absolute_path",
			Description: "Absolute filesystem path in argument",
			Regex:       regexp.MustCompile(`^(/|~/|[A-Za-z]:\\)|=/`),
			Severity:    SeverityHigh,
		},
		{
			Name:        "pseudo_filesystem",
			Description: "Reference to a kernel pseudo filesystem",
			Regex:       regexp.MustCompile(`/(proc|sys|dev)/`),
			Severity:    SeverityCritical,
		},
		{
			Name:        "shell_expansion",
			Description: "Shell substitution syntax in argument",
			Regex:       regexp.MustCompile("\\$\\(|`|\\$\\{"),
			Severity:    SeverityMedium,
		},
		{
			Name:        "control_characters",
			Description: "Control characters in argument",
			Regex:       regexp.MustCompile(`[\x00-\x08\x0a-\x1f\x7f]`),
			Severity:    SeverityMedium,
		},
	}
}
