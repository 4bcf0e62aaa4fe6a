// Command concepts runs the concept store CLI and HTTP node.
package main

import "github.com/mesh-intelligence/concepts/internal/cli"

func main() {
	cli.Execute()
}
