package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDateRange   = errors.New("invalid date range")
	ErrNoGeometry         = errors.New("no usable polygon geometry")
	ErrCatalogUnreachable = errors.New("catalog unreachable")
	ErrFileTooSmall       = errors.New("downloaded file too small")
	ErrAssetMissing       = errors.New("asset missing")
)

type GeometryLoadError struct {
	Path string
	Err  error
}

func (e *GeometryLoadError) Error() string {
	return fmt.Sprintf("load geometry %s: %v", e.Path, e.Err)
}

func (e *GeometryLoadError) Unwrap() error { return e.Err }

type CatalogQueryError struct {
	Range DateRange
	Err   error
}

func (e *CatalogQueryError) Error() string {
	return fmt.Sprintf("catalog query %s: %v", e.Range, e.Err)
}

func (e *CatalogQueryError) Unwrap() error { return e.Err }

type IntersectionTestError struct {
	ItemID string
	Err    error
}

func (e *IntersectionTestError) Error() string {
	return fmt.Sprintf("intersection test for item %s: %v", e.ItemID, e.Err)
}

func (e *IntersectionTestError) Unwrap() error { return e.Err }

type DownloadErrorKind string

const (
	DownloadErrorNetwork    DownloadErrorKind = "network"
	DownloadErrorTooSmall   DownloadErrorKind = "too_small"
	DownloadErrorFilesystem DownloadErrorKind = "filesystem"
	DownloadErrorSigning    DownloadErrorKind = "signing"
)

type DownloadError struct {
	Kind DownloadErrorKind
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// DownloadErrorKindOf reports the kind of a download failure, or "" when err is
// not a DownloadError.
func DownloadErrorKindOf(err error) DownloadErrorKind {
	var downloadErr *DownloadError
	if errors.As(err, &downloadErr) {
		return downloadErr.Kind
	}
	return ""
}
