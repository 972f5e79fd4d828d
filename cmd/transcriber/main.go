// Command transcriber runs the batch audio transcription service.
package main

import (
	"context"
	"os"
)

func main() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
