// Command ito manages change proposals and their audit trail.
package main

import "github.com/ito-project/ito/internal/cli"

func main() {
	cli.Execute()
}
