// -- cmd/version.go --
package cmd

// Version holds the application version. It is intended to be overridden at
// build time via ldflags:
//
//	go build -ldflags "-X github.com/mwarrenfield/genscope-cli/cmd.Version=v1.2.3"
var Version = "dev"
