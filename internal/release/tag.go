package release

import (
	"strings"

	foundationerrors "git.home.luguber.info/inful/autodeployer/internal/foundation/errors"
)

const maxTagLength = 255

// ValidateTag accepts tags that are valid git ref names built from
// [A-Za-z0-9._+/-] and rejects anything else, including shell metacharacters.
func ValidateTag(tag string) error {
	if reason := tagProblem(tag); reason != "" {
		return foundationerrors.NetworkError("release tag rejected").
			WithContext("tag", tag).
			WithContext("reason", reason).
			Build()
	}
	return nil
}

func tagProblem(tag string) string {
	switch {
	case tag == "":
		return "empty"
	case len(tag) > maxTagLength:
		return "too long"
	case strings.HasPrefix(tag, "-"):
		return "leading dash"
	case strings.HasSuffix(tag, "/"), strings.HasSuffix(tag, "."):
		return "trailing slash or dot"
	case strings.HasSuffix(tag, ".lock"):
		return "ends with .lock"
	case strings.Contains(tag, ".."), strings.Contains(tag, "//"):
		return "contains .. or //"
	}
	for _, r := range tag {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '+', r == '-', r == '/':
		default:
			return "disallowed character " + string(r)
		}
	}
	for _, part := range strings.Split(tag, "/") {
		if strings.HasPrefix(part, ".") {
			return "component starts with a dot"
		}
	}
	return ""
}
