package main

import "github.com/spiredms/docbridge/cmd/docbridge/cmd"

func main() {
	cmd.Execute()
}
