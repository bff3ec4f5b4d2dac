// Command chainlink is a local issue tracker for working sessions.
package main

import "github.com/mesh-intelligence/chainlink/internal/cli"

func main() {
	cli.Execute()
}
