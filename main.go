package main

import "github.com/open-feature/flagdemo/cmd"

func main() {
	cmd.Execute()
}
