package main

import "github.com/dzakarias/orderbook-replayer/cmd"

func main() {
	cmd.Execute()
}
