package main

import "github.com/dgallion1/xml2rst/cmd/xml2rst/cmd"

func main() {
	cmd.Execute()
}
