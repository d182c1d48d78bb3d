// Command amenity-ingest triggers facility ingestion runs from the command
// line. Scheduling (cron, CI, an admin panel) lives outside this binary.
package main

import (
	"github.com/openamenity/amenity-ingest/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
