/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/async-race-service/cmd"

func main() {
	cmd.Execute()
}
