package main

import "SpeedSplit/cmd"

func main() {
	cmd.Execute()
}
