package game

import "fmt"

type CommandKind string

const (
	CommandMove    CommandKind = "move"
	CommandTurn    CommandKind = "turn"
	CommandCollect CommandKind = "collect"
	CommandScan    CommandKind = "scan"
)

// MaxProgramLength caps how many commands a single submission may carry.
const MaxProgramLength = 200

// Command is one movement instruction of a rover program. The server never
// interprets it; it is stored and forwarded to every client for animation.
type Command struct {
	Kind  CommandKind `json:"type"`
	Value float64     `json:"value"`
}

type Program []Command

func (k CommandKind) valid() bool {
	switch k {
	case CommandMove, CommandTurn, CommandCollect, CommandScan:
		return true
	}
	return false
}

// Validate rejects unknown command kinds and oversized programs.
func (p Program) Validate() error {
	if len(p) > MaxProgramLength {
		return fmt.Errorf("%w: program has %d commands, max %d", ErrBadRequestFormat, len(p), MaxProgramLength)
	}
	for i, c := range p {
		if !c.Kind.valid() {
			return fmt.Errorf("%w: command %d has unknown type %q", ErrBadRequestFormat, i, c.Kind)
		}
	}
	return nil
}
