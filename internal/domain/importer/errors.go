package importer

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, use .csv, .xlsx or .xls")
	ErrEmptyFile         = errors.New("file has no rows")
	ErrMissingColumns    = errors.New("file is missing required columns")
	ErrNoValidRows       = errors.New("file has no importable rows")
	ErrFileTooLarge      = errors.New("file is too large")
)
