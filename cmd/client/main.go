// Manual test client: sends one inference call to a deployed endpoint and
// pretty-prints the parsed result.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/polaritylab/sentiment-service/pkg/client"
)

func main() {
	var (
		endpoint = flag.String("endpoint", "http://localhost:8080", "Base URL of the inference endpoint")
		text     = flag.String("text", "This is a great product, I love it!", "Text to analyze")
		timeout  = flag.Duration("timeout", 30*time.Second, "Request timeout")
	)
	flag.Parse()

	fmt.Printf("Invoking endpoint: %s\n", *endpoint)
	fmt.Printf("Input text: %s\n", *text)

	c := client.NewHTTPClient(*endpoint, *timeout)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := c.Classify(ctx, *text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error invoking endpoint: %v\n", err)
		os.Exit(1)
	}

	result := resp.Result
	fmt.Println("\nSentiment Analysis:")
	fmt.Printf("  Positive: %.4f\n", result.Positive)
	fmt.Printf("  Negative: %.4f\n", result.Negative)

	if result.IsPositive() {
		fmt.Printf("  Overall: Positive (confidence: %.2f)\n", result.Positive)
	} else {
		fmt.Printf("  Overall: Negative (confidence: %.2f)\n", result.Negative)
	}
}
