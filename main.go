package main

import "github.com/shubhamforall/petstore-api/cmd"

func main() {
	cmd.Execute()
}
