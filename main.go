package main

import (
	"os"

	"twotokens/cmd"
)

func main() {
	os.Exit(cmd.Run())
}
