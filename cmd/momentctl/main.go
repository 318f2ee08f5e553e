package main

import "jamesfarrell.me/video-moments/internal/cli"

func main() {
	cli.Execute()
}
