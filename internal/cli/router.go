package cli

import (
	"strings"
)

// command is what a line typed at the prompt asks for.
type command int

const (
	cmdAnswer command = iota
	cmdQuit
	cmdHelp
	cmdContext
	cmdGraph
)

// Only these words are reserved: flows own the rest of the input space,
// so an option id like "help" must stay answerable.
var inputMappings = map[string]command{
	"q":        cmdQuit,
	"quit":     cmdQuit,
	"exit":     cmdQuit,
	":help":    cmdHelp,
	":context": cmdContext,
	":graph":   cmdGraph,
}

// routeInput classifies a prompt line. Anything unmapped is an answer.
func routeInput(line string) command {
	if cmd, ok := inputMappings[strings.ToLower(strings.TrimSpace(line))]; ok {
		return cmd
	}
	return cmdAnswer
}

const helpText = `Answer with an option number or id, free text, or a number.
Separate several choices with commas on multiple choice questions.

  :context  show the session context
  :graph    show the flow as a Mermaid diagram
  :help     show this help
  q, quit   leave (the session can be resumed with --resume)
`
