// Atrium is an admin panel backend: it resolves per-page field sets of
// declared resources and exports resource listings to CSV or XLSX files,
// synchronously or through a background queue.
//
// Usage:
//
//	# Start the HTTP server with the in-process export worker
//	atrium serve --config atrium.yaml
//
//	# Run a separate worker against the durable queue
//	atrium worker --config atrium.yaml
//
//	# Export a resource from the command line
//	atrium export items --filter active=1 --csv
//
//	# Inspect the fields a page resolves to
//	atrium fields items form --output json
//
//	# Validate configuration and resource definitions
//	atrium validate
package main

import "os"

func main() {
	os.Exit(Execute())
}
