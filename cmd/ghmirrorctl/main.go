package main

import "github.com/alimgiray/ghmirror/internal/cli"

func main() {
	cli.Execute()
}
