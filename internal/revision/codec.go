package revision

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// artifact is the YAML on-disk form of a revision.
type artifact struct {
	Revision     string    `yaml:"revision"`
	DownRevision string    `yaml:"down_revision,omitempty"`
	BranchLabel  string    `yaml:"branch_label,omitempty"`
	Message      string    `yaml:"message"`
	CreatedAt    time.Time `yaml:"created_at"`
	Checksum     string    `yaml:"checksum"`
	Upgrade      []string  `yaml:"upgrade"`
	Downgrade    []string  `yaml:"downgrade"`
}

// filenamePattern matches revision artifacts: <12-hex-id>_<slug>.yaml.
var filenamePattern = regexp.MustCompile(`^([0-9a-f]{12})_([a-z0-9_]+)\.yaml$`) //nolint:gochecknoglobals // compiled once

// Filename returns the artifact filename for the revision.
func (r *Revision) Filename() string {
	return r.ID + "_" + Slug(r.Message) + ".yaml"
}

// Slug converts a revision message into a filename-safe fragment.
func Slug(message string) string {
	var b strings.Builder

	for _, c := range strings.ToLower(strings.TrimSpace(message)) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			b.WriteByte('_')
		}
	}

	if b.Len() == 0 {
		return "revision"
	}

	return b.String()
}

// Marshal encodes the revision as a YAML artifact.
func Marshal(r *Revision) ([]byte, error) {
	a := artifact{
		Revision:     r.ID,
		DownRevision: r.DownID,
		BranchLabel:  r.BranchLabel,
		Message:      r.Message,
		CreatedAt:    r.CreatedAt.UTC(),
		Checksum:     r.Checksum,
		Upgrade:      r.UpgradeOps,
		Downgrade:    r.DowngradeOps,
	}

	data, err := yaml.Marshal(&a)
	if err != nil {
		return nil, fmt.Errorf("encoding revision %s: %w", r.ID, err)
	}

	return data, nil
}

// Unmarshal decodes a YAML artifact and verifies its checksum against the
// upgrade ops it carries.
func Unmarshal(data []byte) (Revision, error) {
	var a artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Revision{}, fmt.Errorf("decoding revision artifact: %w", err)
	}

	if a.Revision == "" {
		return Revision{}, fmt.Errorf("decoding revision artifact: missing revision id")
	}

	if a.Checksum != "" && a.Checksum != ComputeChecksum(a.Upgrade) {
		return Revision{}, fmt.Errorf("revision %s: %w", a.Revision, ErrChecksumMismatch)
	}

	return Revision{
		ID:           a.Revision,
		DownID:       a.DownRevision,
		BranchLabel:  a.BranchLabel,
		Message:      a.Message,
		CreatedAt:    a.CreatedAt,
		UpgradeOps:   a.Upgrade,
		DowngradeOps: a.Downgrade,
		Checksum:     a.Checksum,
	}, nil
}
