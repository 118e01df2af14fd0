package main

import (
	"github.com/sporelabs/sporeverse/internal/cli"
)

func main() {
	cli.Execute()
}
