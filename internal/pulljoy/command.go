package pulljoy

import (
	"fmt"
	"strings"
)

// ApproveCommand authorizes the pending review request whose review id
// matches ReviewID.
type ApproveCommand struct {
	ReviewID string
}

// CommandSyntaxError is returned when a recognized command keyword is used
// with a wrong argument count or shape.
type CommandSyntaxError struct {
	Detail string
}

func (e *CommandSyntaxError) Error() string {
	return fmt.Sprintf("invalid command syntax: %s", e.Detail)
}

// UnsupportedCommandTypeError is returned when the command prefix is
// followed by an unrecognized keyword.
type UnsupportedCommandTypeError struct {
	Keyword string
}

func (e *UnsupportedCommandTypeError) Error() string {
	return fmt.Sprintf("unsupported command: %q", e.Keyword)
}

// ParseCommand extracts a command from a comment body.
// The grammar is: <prefix> <keyword> <args...>.
// When the prefix token does not occur anywhere in the body, or it is not
// followed by a keyword, (nil, nil) is returned, the comment contains no
// command.
// Parsing is pure, callers are responsible for turning failures into
// user-facing replies.
func ParseCommand(prefix, body string) (*ApproveCommand, error) {
	fields := strings.Fields(body)

	prefixIdx := -1
	for i, field := range fields {
		if field == prefix {
			prefixIdx = i
			break
		}
	}

	if prefixIdx == -1 || prefixIdx == len(fields)-1 {
		return nil, nil
	}

	keyword := fields[prefixIdx+1]
	args := fields[prefixIdx+2:]

	switch keyword {
	case "approve":
		if len(args) != 1 {
			return nil, &CommandSyntaxError{
				Detail: fmt.Sprintf("approve requires exactly 1 argument, the review id, got %d", len(args)),
			}
		}

		return &ApproveCommand{ReviewID: args[0]}, nil

	default:
		return nil, &UnsupportedCommandTypeError{Keyword: keyword}
	}
}
