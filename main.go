package main

import "github.com/gaurav-prasanna/flatdoc/cmd"

func main() {
	cmd.Execute()
}
