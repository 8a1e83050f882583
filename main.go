package main

import "github.com/AliTumkaya-new/CarbonCAM/cmd"

func main() {
	cmd.Execute()
}
