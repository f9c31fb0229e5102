package main

import "github.com/unguarded/rcu/cmd"

func main() {
	cmd.Execute()
}
