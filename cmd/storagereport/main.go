// Command storagereport snapshots collaborators' S3 usage, mails the daily
// report and verifies copied directory trees.
package main

import "github.com/mesh-intelligence/storagereport/internal/cli"

func main() {
	cli.Execute()
}
