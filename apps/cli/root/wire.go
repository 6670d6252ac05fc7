package root

import (
	boardcmd "github.com/torqueware/shopboard/apps/cli/cmd/board"
)

func init() {
	Root().AddCommand(boardcmd.Command())
}
