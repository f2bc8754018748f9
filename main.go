package main

import "mistral-task/internal/cmd"

func main() {
	cmd.Execute()
}
