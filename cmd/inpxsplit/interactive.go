package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"
)

func isInteractiveEnvironment() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// pickArchive prompts on the terminal for one of the candidate archives.
func pickArchive(candidates []string) (string, error) {
	fmt.Println("Select a source archive:")
	for i, candidate := range candidates {
		fmt.Printf("  %d) %s\n", i+1, filepath.Base(candidate))
	}
	fmt.Print("Archive number: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read selection: %w", err)
	}

	choice := strings.TrimSpace(line)
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(candidates) {
		return "", fmt.Errorf("invalid selection %q", choice)
	}

	return candidates[idx-1], nil
}
