package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

func collectURLs(args []string) ([]string, error) {
	var urls []string

	// Add URLs from command line arguments
	for _, arg := range args {
		if arg = strings.TrimSpace(arg); arg != "" {
			urls = append(urls, arg)
		}
	}

	if file != "" {
		fileURLs, err := readURLsFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read URLs from file %s: %w", file, err)
		}
		urls = append(urls, fileURLs...)
	}

	// Read URLs from stdin if no args and no file specified
	if len(args) == 0 && file == "" {
		stdinURLs, err := readURLsFromStdin()
		if err != nil {
			return nil, fmt.Errorf("failed to read URLs from stdin: %w", err)
		}
		urls = append(urls, stdinURLs...)
	}

	return urls, nil
}

func readURLsFromFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readURLs(f)
}

func readURLsFromStdin() ([]string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	// Only read when data is piped in
	if stat.Mode()&os.ModeCharDevice != 0 {
		return nil, nil
	}
	return readURLs(os.Stdin)
}

// readURLs returns one URL per non-empty line, skipping # comments.
// Validation is left to the extractor so rejected URLs are reported.
func readURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	return urls, scanner.Err()
}
