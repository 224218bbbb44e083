package main

import "gradeway-backend/cmd/gradeway-cli/cmd"

func main() {
	cmd.Execute()
}
