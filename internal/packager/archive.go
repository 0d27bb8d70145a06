// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/seamdriven/extpack/pkg/manifest"
)

const (
	// ContentRoot is the directory staged files live under inside a VSIX.
	ContentRoot = "extension/"
	// DefaultExtension is the archive suffix ArchivePackager writes.
	DefaultExtension = ".vsix"

	vsixManifestName = "extension.vsixmanifest"
	contentTypesName = "[Content_Types].xml"
)

type (
	// ArchivePackager writes a VSIX-shaped zip of workDir into workDir,
	// named after the staged descriptor.
	ArchivePackager struct {
		// Descriptor is the staged descriptor file name; empty means
		// manifest.DefaultDescriptor.
		Descriptor string
		// Extension is the archive suffix; empty means DefaultExtension.
		Extension string
		Logger    *slog.Logger
	}

	vsixManifest struct {
		XMLName  xml.Name     `xml:"PackageManifest"`
		Version  string       `xml:"Version,attr"`
		XMLNS    string       `xml:"xmlns,attr"`
		Metadata vsixMetadata `xml:"Metadata"`
		Assets   []vsixAsset  `xml:"Assets>Asset"`
	}

	vsixMetadata struct {
		Identity    vsixIdentity `xml:"Identity"`
		DisplayName string       `xml:"DisplayName"`
		Description string       `xml:"Description"`
	}

	vsixIdentity struct {
		ID        string `xml:"Id,attr"`
		Version   string `xml:"Version,attr"`
		Publisher string `xml:"Publisher,attr"`
	}

	vsixAsset struct {
		Type string `xml:"Type,attr"`
		Path string `xml:"Path,attr"`
	}

	contentTypes struct {
		XMLName  xml.Name         `xml:"Types"`
		XMLNS    string           `xml:"xmlns,attr"`
		Defaults []contentDefault `xml:"Default"`
	}

	contentDefault struct {
		Extension   string `xml:"Extension,attr"`
		ContentType string `xml:"ContentType,attr"`
	}

	stagedFile struct {
		abs string
		rel string
	}
)

// Package archives every regular file under workDir below ContentRoot and
// adds the VSIX metadata entries. Entries are written in lexical order with
// zeroed timestamps so identical staging trees produce identical archives.
func (p *ArchivePackager) Package(ctx context.Context, workDir string) (err error) {
	descriptor := p.Descriptor
	if descriptor == "" {
		descriptor = manifest.DefaultDescriptor
	}
	ext := p.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m, err := manifest.Load(workDir, descriptor)
	if err != nil {
		return p.fail(workDir, err)
	}

	files, err := collectFiles(workDir, ext)
	if err != nil {
		return p.fail(workDir, err)
	}

	outPath := filepath.Join(workDir, m.ArtifactName(ext))
	f, err := os.Create(outPath)
	if err != nil {
		return p.fail(workDir, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = p.fail(workDir, closeErr)
		}
	}()

	zw := zip.NewWriter(f)
	defer func() {
		if closeErr := zw.Close(); closeErr != nil && err == nil {
			err = p.fail(workDir, closeErr)
		}
	}()

	manifestXML, err := buildVSIXManifest(m)
	if err != nil {
		return p.fail(workDir, err)
	}
	typesXML, err := buildContentTypes(files)
	if err != nil {
		return p.fail(workDir, err)
	}
	if err := writeEntry(zw, vsixManifestName, manifestXML); err != nil {
		return p.fail(workDir, err)
	}
	if err := writeEntry(zw, contentTypesName, typesXML); err != nil {
		return p.fail(workDir, err)
	}

	for _, sf := range files {
		if err := ctx.Err(); err != nil {
			return p.fail(workDir, err)
		}
		if err := copyEntry(zw, ContentRoot+sf.rel, sf.abs); err != nil {
			return p.fail(workDir, err)
		}
	}

	logger.Debug("archive written", "path", outPath, "entries", len(files)+2)
	return nil
}

func (p *ArchivePackager) fail(workDir string, err error) error {
	return &InvocationError{Command: "builtin archive", Dir: workDir, ExitCode: 1, Err: err}
}

// collectFiles lists regular files under dir in lexical order, leaving out
// existing archives so a rerun never nests its own output.
func collectFiles(dir, ext string) ([]stagedFile, error) {
	var files []stagedFile
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if !strings.Contains(rel, "/") && strings.HasSuffix(rel, ext) {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			info, statErr := os.Stat(p)
			if statErr != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, stagedFile{abs: p, rel: rel})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

func buildVSIXManifest(m *manifest.Manifest) ([]byte, error) {
	doc := vsixManifest{
		Version: "2.0.0",
		XMLNS:   "http://schemas.microsoft.com/developer/vsx-schema/2011",
		Metadata: vsixMetadata{
			Identity:    vsixIdentity{ID: m.Name, Version: m.Version, Publisher: m.Publisher},
			DisplayName: m.DisplayName,
			Description: m.Description,
		},
		Assets: []vsixAsset{{
			Type: "Microsoft.VisualStudio.Code.Manifest",
			Path: ContentRoot + filepath.Base(m.Path),
		}},
	}
	return marshalXML(doc)
}

func buildContentTypes(files []stagedFile) ([]byte, error) {
	doc := contentTypes{XMLNS: "http://schemas.openxmlformats.org/package/2006/content-types"}
	seen := map[string]bool{".vsixmanifest": true}
	doc.Defaults = append(doc.Defaults, contentDefault{Extension: ".vsixmanifest", ContentType: "text/xml"})
	for _, sf := range files {
		ext := strings.ToLower(path.Ext(sf.rel))
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		doc.Defaults = append(doc.Defaults, contentDefault{Extension: ext, ContentType: contentTypeFor(ext)})
	}
	return marshalXML(doc)
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".js", ".mjs", ".cjs":
		return "application/javascript"
	case ".json", ".map":
		return "application/json"
	case ".md":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".png":
		return "image/png"
	case ".svg":
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

func marshalXML(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

func copyEntry(zw *zip.Writer, name, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}
