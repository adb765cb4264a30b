// Command printprep готовит изображения к печати.
package main

import "github.com/artemshloyda/printprep/internal/cli"

func main() {
	cli.Execute()
}
