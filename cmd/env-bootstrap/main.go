package main

import "github.com/oshokin/env-bootstrap/cmd/env-bootstrap/cmd"

func main() {
	cmd.Execute()
}
