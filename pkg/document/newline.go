package document

import "github.com/sloked-go/sloked/internal/corerr"

// Newline is the line-separator style a document was created with and
// preserves on save (spec.md §6: "LF, CRLF, CR, or LFCR, selected at
// document creation and preserved on save").
type Newline int

const (
	LF Newline = iota
	CRLF
	CR
	LFCR
)

func (n Newline) String() string {
	switch n {
	case LF:
		return "LF"
	case CRLF:
		return "CRLF"
	case CR:
		return "CR"
	case LFCR:
		return "LFCR"
	default:
		return "LF"
	}
}

// Separator returns the literal byte sequence for n.
func (n Newline) Separator() string {
	switch n {
	case LF:
		return "\n"
	case CRLF:
		return "\r\n"
	case CR:
		return "\r"
	case LFCR:
		return "\n\r"
	default:
		return "\n"
	}
}

// ParseNewline resolves a newline style by its configuration name.
func ParseNewline(name string) (Newline, error) {
	switch name {
	case "LF", "lf", "":
		return LF, nil
	case "CRLF", "crlf":
		return CRLF, nil
	case "CR", "cr":
		return CR, nil
	case "LFCR", "lfcr":
		return LFCR, nil
	default:
		return LF, corerr.Newf(corerr.InvalidState, "unknown newline style %q", name)
	}
}
