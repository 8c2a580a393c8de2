package main

import "github.com/rudransh-shrivastava/peer-assist/internal/cmd"

func main() {
	cmd.Execute()
}
