package changeinfo

import (
	"strings"
)

const (
	// Footer marks commits made by the engine.
	Footer = "Powered-by: rowgit"

	// ActionTrailer carries one registered change in machine-readable form.
	ActionTrailer = "Rowgit-Action"
	// HeadlineTrailer carries the forced headline, when there is one.
	HeadlineTrailer = "Rowgit-Headline"

	// DefaultHeadline is used when no registered change describes itself.
	DefaultHeadline = "Update tracked entities"
)

// Message renders the commit message of one request:
//
//	<headline>
//
//	<one line per info, in registration order>
//
//	Rowgit-Headline: <action> <kind>/<id>
//	Rowgit-Action: <action> <kind>/<id>
//	Powered-by: rowgit
//
// A non-zero headline is the first line and every info is listed in the
// body. Otherwise the first info becomes the first line and the body holds
// the rest. Zero infos are skipped. Identical infos are all kept.
func Message(headline Info, infos []Info) string {
	var lines []Info
	for _, info := range infos {
		if !info.IsZero() {
			lines = append(lines, info)
		}
	}

	var sb strings.Builder

	body := lines
	switch {
	case !headline.IsZero():
		sb.WriteString(headline.Describe())
	case len(lines) > 0:
		sb.WriteString(lines[0].Describe())
		body = lines[1:]
	default:
		sb.WriteString(DefaultHeadline)
	}

	if len(body) > 0 {
		sb.WriteString("\n\n")
		for i, info := range body {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(info.Describe())
		}
	}

	// Trailers
	sb.WriteString("\n\n")
	if !headline.IsZero() {
		sb.WriteString(HeadlineTrailer + ": " + trailerValue(headline) + "\n")
	}
	for _, info := range lines {
		sb.WriteString(ActionTrailer + ": " + trailerValue(info) + "\n")
	}
	sb.WriteString(Footer)

	return sb.String()
}

func trailerValue(i Info) string {
	v := string(i.Action) + " " + i.SubjectKind
	if i.SubjectID != "" {
		v += "/" + i.SubjectID
	}
	return v
}

// ParseTrailers recovers the forced headline and the registered changes
// from a message produced by Message. Extra values are not recorded in
// trailers and come back empty.
func ParseTrailers(message string) (headline Info, infos []Info) {
	for _, line := range strings.Split(message, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ": ")
		if !ok {
			continue
		}
		switch key {
		case HeadlineTrailer:
			headline = parseTrailerValue(value)
		case ActionTrailer:
			infos = append(infos, parseTrailerValue(value))
		}
	}
	return headline, infos
}

func parseTrailerValue(v string) Info {
	action, subject, _ := strings.Cut(v, " ")
	kind, id, _ := strings.Cut(subject, "/")
	return New(Action(action), kind, id, nil)
}

// IsEngineCommit reports whether message carries the engine footer.
func IsEngineCommit(message string) bool {
	return strings.Contains(message, Footer)
}
