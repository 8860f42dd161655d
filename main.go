package main

import "github.com/kozaktomas/fotofindr/cmd"

func main() {
	cmd.Execute()
}
