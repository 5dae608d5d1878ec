// Command straycheck reports child observation records whose parent bird nest
// point is missing.
package main

import "github.com/dbsmedya/straycheck/cmd/straycheck/cmd"

func main() {
	cmd.Execute()
}
