package main

import "github.com/crmkit/crm-data-apis/cmd"

func main() {
	cmd.Execute()
}
