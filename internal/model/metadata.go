package model

// MetadataCategory groups EXIF tags by the kind of information they leak.
type MetadataCategory string

const (
	// MetadataLocation covers GPS coordinates.
	MetadataLocation MetadataCategory = "location"

	// MetadataDevice covers camera make, model and serial numbers.
	MetadataDevice MetadataCategory = "device"

	// MetadataAuthor covers artist, author and copyright fields.
	MetadataAuthor MetadataCategory = "author"

	// MetadataSoftware covers editing software and host computer names.
	MetadataSoftware MetadataCategory = "software"
)

// MetadataFinding is one identifying EXIF tag found in a mirrored image.
type MetadataFinding struct {
	Category MetadataCategory `json:"category"`
	Tag      string           `json:"tag"`
	Value    string           `json:"value"`
}
