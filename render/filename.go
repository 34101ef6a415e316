package render

import (
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

// TemplateVariables holds the substitution values for a render job's
// filename_template (§4.I "Filename templating").
type TemplateVariables struct {
	Project   string
	TrackName string
	Format    string
}

// timestampLayout and dateLayout are strftime patterns, not Go's
// reference-time layout - `github.com/lestrrat-go/strftime` compiles
// them once per call here since filenames are generated far off the
// audio thread.
const (
	timestampLayout = "%Y%m%d_%H%M%S"
	dateLayout      = "%Y%m%d"
)

// RenderFilename substitutes {project}, {track_name}, {timestamp},
// {format}, {date} into tmpl and sanitizes the result (§4.I).
func RenderFilename(tmpl string, vars TemplateVariables, at time.Time) (string, error) {
	timestamp, err := strftime.Format(timestampLayout, at)
	if err != nil {
		return "", err
	}
	date, err := strftime.Format(dateLayout, at)
	if err != nil {
		return "", err
	}

	project := vars.Project
	if project == "" {
		project = "Project"
	}
	trackName := vars.TrackName
	if trackName == "" {
		trackName = "Master"
	}

	replacer := strings.NewReplacer(
		"{project}", project,
		"{track_name}", trackName,
		"{timestamp}", timestamp,
		"{format}", vars.Format,
		"{date}", date,
	)
	return SanitizeFilename(replacer.Replace(tmpl)), nil
}

const invalidFilenameChars = `<>:"/\|?*`

// SanitizeFilename strips characters invalid in filenames, trims
// leading/trailing whitespace and dots, and falls back to "untitled"
// for an empty result (§4.I).
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(invalidFilenameChars, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	result := strings.Trim(b.String(), " \t.")
	if result == "" {
		return "untitled"
	}
	return result
}
