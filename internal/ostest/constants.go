package ostest

import (
	"fmt"
	"strings"
)

// Backend tags.
const (
	COS     = "COS"
	S3A     = "S3A"
	SWIFT2D = "SWIFT2D"
)

// Protocol tags, used as object name prefixes.
const (
	ProtocolCOS     = "cos"
	ProtocolS3A     = "s3a"
	ProtocolSWIFT2D = "swift2d"
)

const (
	DefaultBucketName    = "streams-test-bucket"
	DefaultContainerName = "streams-test-container"

	// MultiAttrTestDataFileName holds 300 rows of the injection schema.
	MultiAttrTestDataFileName = "os_multi_attr_test.txt"
	TestDataFileDelimiter     = ","

	// StatusSchemaDecl is the declaration of the sink status output.
	StatusSchemaDecl = "tuple<rstring objectName, uint64 objectSize>"

	// TraceLevel is the runtime log level of fixture runs.
	TraceLevel = "trace"
)

// Protocol resolves a backend tag to its protocol tag.
func Protocol(backend string) (string, error) {
	switch strings.ToUpper(backend) {
	case COS:
		return ProtocolCOS, nil
	case S3A:
		return ProtocolS3A, nil
	case SWIFT2D:
		return ProtocolSWIFT2D, nil
	}
	return "", fmt.Errorf("unknown backend %q", backend)
}
