// Command mldstore inspects and edits an MLD plugin's local store.
package main

import "github.com/mld-platform/mld-sdk/internal/cli"

func main() {
	cli.Main()
}
