// Command vmsim simulates a single-level paged virtual memory with FIFO page
// replacement.
package main

import "github.com/sarchlab/vmsim/vmsim/cmd"

func main() {
	cmd.Execute()
}
