package rules

import (
	"path/filepath"
	"strings"

	"github.com/yungbote/contentsafety/internal/platform/db"
	"github.com/yungbote/contentsafety/internal/platform/logger"
)

// CandidatePaths are the conventional rule file locations, relative paths
// being resolved against the working directory.
var CandidatePaths = []string{
	filepath.Join("config", "banned_phrases.json"),
	filepath.Join("config", "banned_phrases.yaml"),
	filepath.Join("data", "banned_phrases.json"),
	"/etc/contentsafety/banned_phrases.json",
}

// SourceForLocation builds the source named by an override location:
// redis://, rediss://, gs://, postgres://, postgresql://, sqlite:// or a
// filesystem path (file:// prefix optional).
func SourceForLocation(location string, log *logger.Logger) (RuleSource, error) {
	location = strings.TrimSpace(location)
	lower := strings.ToLower(location)
	switch {
	case strings.HasPrefix(lower, "redis://"), strings.HasPrefix(lower, "rediss://"):
		return NewRedisSource(location, log)
	case strings.HasPrefix(lower, "gs://"):
		return NewObjectSource(location, log)
	case db.IsDSN(location):
		return NewDBSource(location, log), nil
	default:
		return NewFileSource(strings.TrimPrefix(location, "file://"), log), nil
	}
}

// ResolveSources returns the full chain: override (if any and buildable),
// then the candidate paths, then the built-in set.
func ResolveSources(override string, log *logger.Logger) []RuleSource {
	log = logger.OrNop(log)
	var out []RuleSource
	if strings.TrimSpace(override) != "" {
		src, err := SourceForLocation(override, log)
		if err != nil {
			log.Warn("ignoring unusable rule location override", "error", err)
		} else {
			out = append(out, src)
		}
	}
	for _, p := range CandidatePaths {
		out = append(out, NewFileSource(p, log))
	}
	return append(out, BuiltinSource{})
}
