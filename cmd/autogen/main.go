package main

import "github.com/mvp-joe/rb-autogen/internal/cli"

func main() {
	cli.Execute()
}
