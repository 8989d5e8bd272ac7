package main

import (
	"github.com/maxgio92/pyperf/pkg/cmd"
)

func main() {
	cmd.Execute()
}
