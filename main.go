package main

import "github.com/KaramelBytes/sheetscope-cli/cmd"

func main() {
	cmd.Execute()
}
