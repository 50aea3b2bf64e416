package bridge

import "strings"

// Documentum basic permission levels.
const (
	permitNone    = 1
	permitBrowse  = 2
	permitRead    = 3
	permitRelate  = 4
	permitVersion = 5
	permitWrite   = 6
	permitDelete  = 7
)

// permitToLabel converts a basic permission level (1-7) to its label.
// Unknown levels yield "UNKNOWN".
func permitToLabel(permit int) string {
	switch permit {
	case permitNone:
		return "NONE"
	case permitBrowse:
		return "BROWSE"
	case permitRead:
		return "READ"
	case permitRelate:
		return "RELATE"
	case permitVersion:
		return "VERSION"
	case permitWrite:
		return "WRITE"
	case permitDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// labelToPermit converts a permission label (case-insensitive) to its level,
// or -1 when the label is not recognized. The backend returns the label form
// on some endpoints and the numeric form on others.
func labelToPermit(label string) int {
	switch strings.ToUpper(label) {
	case "NONE":
		return permitNone
	case "BROWSE":
		return permitBrowse
	case "READ":
		return permitRead
	case "RELATE":
		return permitRelate
	case "VERSION":
		return permitVersion
	case "WRITE":
		return permitWrite
	case "DELETE":
		return permitDelete
	default:
		return -1
	}
}
