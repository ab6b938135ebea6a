package main

import (
	"github.com/tansive/jsbridge/internal/cli"
)

func main() {
	cli.Execute()
}
