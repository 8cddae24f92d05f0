package main

import "github.com/oshokin/apk-packager/cmd/apk-packager/cmd"

func main() {
	cmd.Execute()
}
