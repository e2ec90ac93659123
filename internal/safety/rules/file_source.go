package rules

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/contentsafety/internal/domain/safety"
	"github.com/yungbote/contentsafety/internal/platform/logger"
)

// FileSource reads a JSON or YAML rule document from the local filesystem.
type FileSource struct {
	Path string
	log  *logger.Logger
}

func NewFileSource(path string, log *logger.Logger) *FileSource {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &FileSource{Path: path, log: logger.OrNop(log).With("service", "FileRuleSource")}
}

func (s *FileSource) Name() string { return "file:" + s.Path }
func (s *FileSource) Kind() string { return "file" }

func (s *FileSource) TryLoad(ctx context.Context) ([]safety.BannedPhraseRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", s.Path)
	}
	if info.Size() > maxPayloadBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", s.Path, maxPayloadBytes)
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	rules, skipped, err := decodePayload(data, formatForPath(s.Path))
	if skipped > 0 {
		s.log.Warn("skipped malformed rule entries", "path", s.Path, "skipped", skipped)
	}
	return rules, err
}

func formatForPath(path string) payloadFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".json":
		return formatJSON
	default:
		return formatAuto
	}
}
