// Package errors provides sentinel errors for documentation discovery.
package errors

import "errors"

var (
	// ErrDocsPathNotFound indicates the configured docs directory does not exist.
	ErrDocsPathNotFound = errors.New("documentation path not found")

	// ErrDocsDirWalkFailed indicates filesystem traversal of a content directory failed.
	ErrDocsDirWalkFailed = errors.New("documentation directory walk failed")

	// ErrFileReadFailed indicates reading a discovered file failed.
	ErrFileReadFailed = errors.New("documentation file read failed")

	// ErrFrontMatterInvalid indicates a document's front matter could not be parsed.
	ErrFrontMatterInvalid = errors.New("invalid front matter")

	// ErrDuplicateID indicates two documents resolved to the same id.
	ErrDuplicateID = errors.New("duplicate document id")

	// ErrDuplicatePermalink indicates two documents or pages resolved to the same URL.
	ErrDuplicatePermalink = errors.New("duplicate permalink")
)
