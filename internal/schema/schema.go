// Package schema defines the versioned on-disk documents of a project and the
// rules that validate and default them.
//
// Every Parse function either returns a fully defaulted value or a
// *ValidationError listing every violated constraint.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/atelier/internal/apperr"
)

// Document is implemented by every top-level file type.
type Document interface {
	ApplyDefaults()
	Validate() error
}

// ValidationError reports why a document was rejected. Source is the file
// the document was read from, when known.
type ValidationError struct {
	Document string
	Source   string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("schema: invalid %s %s: %v", e.Document, e.Source, e.Err)
	}
	return fmt.Sprintf("schema: invalid %s: %v", e.Document, e.Err)
}

// WithSource records path as the origin of a *ValidationError inside err.
// Other errors are returned unchanged.
func WithSource(err error, path string) error {
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Source == "" {
		verr.Source = path
	}
	return err
}

// Unwrap exposes both apperr.ErrInvalid and the underlying cause, so callers
// can match on either or extract validation.Errors with errors.As.
func (e *ValidationError) Unwrap() []error {
	return []error{apperr.ErrInvalid, e.Err}
}

// Fields returns the per-field violations when the failure came from rule
// validation rather than malformed JSON.
func (e *ValidationError) Fields() validation.Errors {
	var errs validation.Errors
	if errors.As(e.Err, &errs) {
		return errs
	}
	return nil
}

func parse[T any, PT interface {
	*T
	Document
}](name string, data []byte) (T, error) {
	var doc T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(PT(&doc)); err != nil {
		var zero T
		return zero, &ValidationError{Document: name, Err: err}
	}
	if err := Check(name, PT(&doc)); err != nil {
		var zero T
		return zero, err
	}
	return doc, nil
}

// Check fills defaults on doc and validates it.
func Check(name string, doc Document) error {
	doc.ApplyDefaults()
	if err := doc.Validate(); err != nil {
		return &ValidationError{Document: name, Err: err}
	}
	return nil
}

// Document names used in errors.
const (
	DocProject  = "project"
	DocSite     = "site"
	DocTheme    = "theme"
	DocPage     = "page"
	DocContent  = "content record"
	DocLock     = "blocks lock"
	DocManifest = "block manifest"
)

// ParseProject parses project.json.
func ParseProject(data []byte) (ProjectFile, error) {
	return parse[ProjectFile](DocProject, data)
}

// ParseSite parses site.json.
func ParseSite(data []byte) (SiteFile, error) {
	return parse[SiteFile](DocSite, data)
}

// ParseTheme parses theme.json.
func ParseTheme(data []byte) (ThemeFile, error) {
	return parse[ThemeFile](DocTheme, data)
}

// ParsePage parses a file under pages/.
func ParsePage(data []byte) (PageManifestFile, error) {
	return parse[PageManifestFile](DocPage, data)
}

// ParseContent parses a file under content/.
func ParseContent(data []byte) (ContentRecordFile, error) {
	return parse[ContentRecordFile](DocContent, data)
}

// ParseBlocksLock parses blocks.lock.json.
func ParseBlocksLock(data []byte) (BlocksLockFile, error) {
	return parse[BlocksLockFile](DocLock, data)
}

// ParseManifest parses a block.manifest.json.
func ParseManifest(data []byte) (BlockManifest, error) {
	return parse[BlockManifest](DocManifest, data)
}
