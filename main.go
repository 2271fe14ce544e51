package main

import "github.com/wangvm/pgdelta/cmd"

func main() {
	cmd.Execute()
}
