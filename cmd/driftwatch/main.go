// Command driftwatch runs the streaming anomaly detection service, a
// simulated sample producer, and offline file replay.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
