// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/seamdriven/extpack/pkg/cueutil"
)

const (
	// DefaultDescriptor is the descriptor file name of an extension project.
	DefaultDescriptor = "package.json"

	// MaxDescriptorSize caps the descriptor read by Load (1MB).
	MaxDescriptorSize int64 = 1 << 20
)

//go:embed manifest_schema.cue
var schema []byte

var (
	// ErrManifestNotFound is returned when the descriptor is absent or malformed.
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrManifestInvalid is returned when a well-formed descriptor breaks an
	// invariant the schema cannot express (e.g. duplicate command ids).
	ErrManifestInvalid = errors.New("invalid manifest")
)

type (
	// CommandID identifies a contributed command (e.g. "sdd.analyzeFunction").
	CommandID string

	// Command is one entry of contributes.commands.
	Command struct {
		ID       CommandID `json:"command"`
		Title    string    `json:"title"`
		Category string    `json:"category,omitempty"`
	}

	// Contributions is the Contribution Set. Only commands are typed; the rest
	// of the object is carried verbatim through the raw fields.
	Contributions struct {
		Commands []Command `json:"commands,omitempty"`
	}

	// Repository is the object form of the "repository" field.
	Repository struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	}

	// Manifest is the full project descriptor.
	Manifest struct {
		Name             string            `json:"name"`
		DisplayName      string            `json:"displayName,omitempty"`
		Description      string            `json:"description,omitempty"`
		Version          string            `json:"version"`
		Publisher        string            `json:"publisher,omitempty"`
		Engines          map[string]string `json:"engines,omitempty"`
		Categories       []string          `json:"categories,omitempty"`
		Keywords         []string          `json:"keywords,omitempty"`
		ActivationEvents []string          `json:"activationEvents,omitempty"`
		Main             string            `json:"main,omitempty"`
		Contributes      Contributions     `json:"contributes"`
		// Repository is either a string or a {type, url} object.
		Repository any `json:"repository,omitempty"`

		// Path is the absolute path of the descriptor file.
		Path string `json:"-"`

		raw  map[string]json.RawMessage
		data []byte
	}

	// LoadError reports a descriptor that could not be read, parsed or
	// validated. It matches both ErrManifestNotFound and its cause.
	LoadError struct {
		Path string
		Err  error
	}

	// DuplicateCommandError reports a command id declared more than once in
	// an otherwise well-formed descriptor. It matches ErrManifestInvalid only.
	DuplicateCommandError struct {
		Path string
		ID   CommandID
	}
)

// Load reads and validates the descriptor at projectRoot/descriptor. An empty
// descriptor means DefaultDescriptor.
func Load(projectRoot, descriptor string) (*Manifest, error) {
	if descriptor == "" {
		descriptor = DefaultDescriptor
	}
	p, err := filepath.Abs(filepath.Join(projectRoot, descriptor))
	if err != nil {
		return nil, &LoadError{Path: descriptor, Err: err}
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, &LoadError{Path: p, Err: err}
	}

	return Parse(p, data)
}

// Parse validates descriptor bytes. p is used for error messages and stored
// as Manifest.Path.
func Parse(p string, data []byte) (*Manifest, error) {
	res, err := cueutil.Decode[Manifest](schema, data, "#Manifest",
		cueutil.WithFilename(filepath.Base(p)),
		cueutil.WithJSON(),
		cueutil.WithMaxFileSize(MaxDescriptorSize),
	)
	if err != nil {
		return nil, &LoadError{Path: p, Err: err}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Path: p, Err: fmt.Errorf("descriptor is not a JSON object: %w", err)}
	}

	m := res.Value
	m.Path = p
	m.raw = raw
	m.data = data

	if err := m.checkCommands(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) checkCommands() error {
	seen := make(map[CommandID]struct{}, len(m.Contributes.Commands))
	for _, c := range m.Contributes.Commands {
		if _, dup := seen[c.ID]; dup {
			return &DuplicateCommandError{Path: m.Path, ID: c.ID}
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

// CommandIDs returns the contributed command ids in declaration order.
func (m *Manifest) CommandIDs() []CommandID {
	ids := make([]CommandID, 0, len(m.Contributes.Commands))
	for _, c := range m.Contributes.Commands {
		ids = append(ids, c.ID)
	}
	return ids
}

// HasCommand reports whether id is declared in the Contribution Set.
func (m *Manifest) HasCommand(id CommandID) bool {
	for _, c := range m.Contributes.Commands {
		if c.ID == id {
			return true
		}
	}
	return false
}

// EntryPoint returns the declared main file as a clean slash path without a
// leading "./", or "" when none is declared.
func (m *Manifest) EntryPoint() string {
	if strings.TrimSpace(m.Main) == "" {
		return ""
	}
	p := path.Clean(filepath.ToSlash(m.Main))
	return strings.TrimPrefix(p, "./")
}

// ArtifactName returns "<name>-<version><ext>". A missing leading dot on ext
// is added.
func (m *Manifest) ArtifactName(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return m.Name + "-" + m.Version + ext
}

// RawField returns the verbatim JSON of a top-level field.
func (m *Manifest) RawField(key string) (json.RawMessage, bool) {
	v, ok := m.raw[key]
	return v, ok
}

// Encode returns the descriptor as read, re-indented with two spaces and
// ending in a newline. Field order is preserved.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(m.data), "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// String returns the command id.
func (id CommandID) String() string { return string(id) }

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load manifest %s: %v", e.Path, e.Err)
}

// Unwrap exposes both the error kind and the cause.
func (e *LoadError) Unwrap() []error { return []error{ErrManifestNotFound, e.Err} }

// Error implements the error interface.
func (e *DuplicateCommandError) Error() string {
	return fmt.Sprintf("load manifest %s: command %q is contributed more than once", e.Path, e.ID)
}

// Unwrap returns ErrManifestInvalid.
func (e *DuplicateCommandError) Unwrap() error { return ErrManifestInvalid }
