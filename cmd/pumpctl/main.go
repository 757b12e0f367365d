// pumpctl -- CLI client for the pumpd compiler daemon.
package main

import "github.com/pumptool/tcppump/cmd/pumpctl/commands"

func main() {
	commands.Execute()
}
