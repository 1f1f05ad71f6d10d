package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Kind distinguishes still images from videos.
type Kind int

const (
	KindImage Kind = iota
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Artifact is one finished capture. Ownership of Payload passes to the
// receiver; producers never touch it again.
type Artifact struct {
	Kind          Kind
	Payload       []byte
	SuggestedName string
	MIME          string
	CreatedAt     time.Time
}

// Sink is the export collaborator receiving finished artifacts.
type Sink interface {
	Deliver(a Artifact) (string, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(a Artifact) (string, error)

func (f SinkFunc) Deliver(a Artifact) (string, error) { return f(a) }

// DirSink writes artifacts into Dir as <timestamp>_<suggested name>. An
// existing file is never overwritten; a numeric suffix is added instead.
type DirSink struct {
	Dir string
	Now func() time.Time
}

const maxNameAttempts = 1000

func (s DirSink) Deliver(a Artifact) (string, error) {
	if len(a.Payload) == 0 {
		return "", errors.New("artifact: empty payload")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact: mkdir %s: %w", s.Dir, err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	name := filepath.Base(a.SuggestedName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = a.Kind.String()
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	prefix := now().Format("20060102-150405")
	for i := 0; i < maxNameAttempts; i++ {
		candidate := fmt.Sprintf("%s_%s%s", prefix, stem, ext)
		if i > 0 {
			candidate = fmt.Sprintf("%s_%s-%d%s", prefix, stem, i, ext)
		}
		path := filepath.Join(s.Dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("artifact: create %s: %w", path, err)
		}
		if _, err := f.Write(a.Payload); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("artifact: write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("artifact: close %s: %w", path, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("artifact: no free name for %s in %s", name, s.Dir)
}
