package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "toast:", err)
	}
	os.Exit(code)
}
