// The main package for the storesync executable.
package main

import "github.com/retailradar/storesync/cmd"

func main() {
	cmd.Execute()
}
