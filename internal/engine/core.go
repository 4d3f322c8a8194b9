package engine

import "context"

type Named interface {
	Name() string
	Kind() string
}

type Closer interface {
	Close(context.Context) error
}

const (
	// DateStampBasic is a URL-safe date format without separators,
	// suitable for S3 keys and filesystem paths.
	DateStampBasic = "20060102"
)
