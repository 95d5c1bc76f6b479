package scripts

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// CommandError describes a failed external command. Stderr is kept for logs
// and never shown to users.
type CommandError struct {
	Op      string
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s failed: %v (stderr: %s)", e.Op, e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Op, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// yt-dlp messages that mean the link itself is unusable.
var inputErrorMarkers = []string{
	"unsupported url",
	"is not a valid url",
	"incomplete youtube id",
	"video unavailable",
	"private video",
	"this video is not available",
	"this video has been removed",
	"sign in to confirm your age",
	"http error 404",
	"http error 410",
	"name or service not known",
	"no video formats found",
}

// IsInputError reports whether err is a command failure caused by the link
// it was given rather than by the tool or the network.
func IsInputError(err error) bool {
	var cmdErr *CommandError
	if !stderrors.As(err, &cmdErr) || cmdErr.Stderr == "" {
		return false
	}
	stderr := strings.ToLower(cmdErr.Stderr)
	for _, marker := range inputErrorMarkers {
		if strings.Contains(stderr, marker) {
			return true
		}
	}
	return false
}
