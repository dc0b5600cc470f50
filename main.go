// main.go
//
// Entry point; CLI handling lives in the Cobra commands under cmd/.

package main

import (
	"github.com/davecoulter/KNmodel/cmd"
)

func main() {
	cmd.Execute()
}
