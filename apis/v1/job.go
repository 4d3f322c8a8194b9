package v1

// KindSplitJob is the only job kind this schema version understands.
const KindSplitJob = "SplitJob"

// SplitJob describes one split run: where the source INPX archive lives,
// which variants to carve out of it, and where the finished variants go.
type SplitJob struct {
	Kind     string       `yaml:"kind" json:"kind" validate:"required,eq=SplitJob"`
	Metadata Metadata     `yaml:"metadata" json:"metadata"`
	Spec     SplitJobSpec `yaml:"spec" json:"spec"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type SplitJobSpec struct {
	Input    InputSpec   `yaml:"input" json:"input"`
	Output   *OutputSpec `yaml:"output,omitempty" json:"output,omitempty"`
	Variants []Variant   `yaml:"variants,omitempty" json:"variants,omitempty" validate:"dive"`
}

// InputSpec names the source archive.
type InputSpec struct {
	// Dir is scanned for source archives when Archive is not set.
	Dir string `yaml:"dir" json:"dir" validate:"required"`
	// Archive is an explicit source filename inside Dir (or an absolute path).
	Archive string `yaml:"archive,omitempty" json:"archive,omitempty"`
}

// OutputSpec configures where finished variant archives are written.
type OutputSpec struct {
	// Dir receives the finished variant archives (default: the input dir).
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
	// S3 optionally mirrors every finished variant to object storage.
	S3 *S3Spec `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// Variant is one partition of the source archive.
type Variant struct {
	// Tag identifies the partition and is substituted into the archive name.
	Tag string `yaml:"tag" json:"tag" validate:"required,alphanum"`
	// Records is the glob matching this variant's record files
	// (default: *<tag>-*.inp).
	Records string `yaml:"records,omitempty" json:"records,omitempty"`
}

// S3Spec configures the optional S3 mirror.
type S3Spec struct {
	Bucket         string         `yaml:"bucket" json:"bucket" validate:"required"`
	Region         *string        `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint       *string        `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Prefix         *string        `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Credentials    *S3Credentials `yaml:"credentials,omitempty" json:"credentials,omitempty"`
	ForcePathStyle bool           `yaml:"forcePathStyle,omitempty" json:"forcePathStyle,omitempty"`
}

type S3Credentials struct {
	AccessKeyID     string `yaml:"accessKeyId" json:"accessKeyId" validate:"required"`
	SecretAccessKey string `yaml:"secretAccessKey" json:"secretAccessKey" validate:"required"`
}
