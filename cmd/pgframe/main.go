// Command pgframe provides operational tooling (migrations, config
// inspection) for applications built on the pgframe core.
package main

import "github.com/ashgate/pgframe/cmd/pgframe/cmd"

func main() {
	cmd.Execute()
}
