package dataset

import "errors"

var (
	// ErrInvalidDatasetID is returned for ids that are not lowercase
	// alphanumeric with hyphens.
	ErrInvalidDatasetID = errors.New("dataset id must be lowercase alphanumeric with hyphens only")
	// ErrNoFilesFound is returned when discovery yields no supported files.
	ErrNoFilesFound = errors.New("no supported files found to index")
	// ErrDatasetExists is returned when the output directory for the
	// dataset id already exists. Builds never overwrite.
	ErrDatasetExists = errors.New("dataset already exists")
	// ErrNoContent is returned when every discovered file was empty or
	// produced no chunks.
	ErrNoContent = errors.New("no text content available to index")
)
