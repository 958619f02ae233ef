// Command cfreport generates Cloudflare analytics reports.
package main

import "github.com/gladston3/cf-reporting/internal/cmd"

func main() {
	cmd.Execute()
}
