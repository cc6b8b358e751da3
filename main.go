package main

import "github.com/mohamadflefel/JCCAdmin/cmd"

func main() {
	cmd.Execute()
}
